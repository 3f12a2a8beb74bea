// Package io reads and writes interval collections in JSON, YAML and TOML.
//
// # Document Format
//
// A document carries an optional title and color mode plus the intervals:
//
//	{
//	  "title": "GET /checkout",
//	  "color_mode": "peaks",
//	  "intervals": [
//	    {"id": "root", "label": "handler", "start": 0, "end": 120},
//	    {"id": "db", "label": "query", "parent_id": "root", "start": 5, "end": 80},
//	    {"id": "tpl", "label": "render", "parent_id": "root", "start": 80, "end": 118, "color": "#4c78a8"}
//	  ]
//	}
//
// JSON input may also be a bare array of intervals. The same fields are used
// for YAML and for TOML, where intervals are an array of tables:
//
//	title = "GET /checkout"
//
//	[[intervals]]
//	id = "root"
//	label = "handler"
//	start = 0.0
//	end = 120.0
//
// # Reading
//
// [ReadCollection] decodes from any reader, [ImportFile] picks the format
// from the file extension, and [Load] additionally accepts http(s) URLs:
//
//	doc, err := io.Load(ctx, "trace.yaml", nil)
//	if err != nil {
//	    return err
//	}
//	l := flame.Build(doc.Intervals, flame.WithColorMode(doc.ColorMode))
//
// Readers check each interval's id and color override and normalize the
// color mode. They do not check the hierarchy; that is [flame.Validate]'s job.
//
// # Writing
//
// [Write] encodes a document in any supported format; [ExportFile] writes to
// a path chosen by extension. Round trips preserve every field.
package io
