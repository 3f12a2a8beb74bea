// Package pkg provides the core libraries for Flametower flame graphs.
//
// # Overview
//
// Flametower turns a flat collection of nested intervals (trace spans,
// profile frames, query plan nodes) into a flame graph: one row per nesting
// level, each frame as wide as its interval, colored by depth or by width.
//
// # Architecture
//
// The typical data flow:
//
//	Document (JSON / YAML / TOML, file or URL) or EXPLAIN plan
//	         ↓
//	    [io] / [source/explain] (decode, convert)
//	         ↓
//	    [flame] (validate roots, resolve levels, assign colors)
//	         ↓
//	    [render] (svg, json, png, pdf, tree, term)
//
// [pipeline] runs these steps with caching and is shared by the CLI and the
// HTTP [server].
//
// # Quick Start
//
//	doc, _ := io.ImportFile("trace.json")
//	l := flame.Build(doc.Intervals, flame.WithColorMode(flame.ColorModeWidth))
//	if !l.Valid() {
//	    return l.Validation.Err()
//	}
//	svg := sink.RenderSVG(l, sink.WithTitle(doc.Title), sink.WithUnit("ms"))
//
// # Main Packages
//
// [flame] - Hierarchy resolution, nine-band color assignment and the
// renderer-agnostic layout.
//
// [render] - Output surfaces for a layout, with [render/sink] for the
// individual formats and [render/tree] for the Graphviz node-link view.
//
// [pipeline] - Load, layout and render with per-stage caching.
//
// [io] - Document import and export.
//
// [source/explain] - PostgreSQL EXPLAIN (FORMAT JSON) conversion with
// hotspot hints.
//
// [cache] - File, Redis and null caches behind one interface.
//
// [storage] - Saved graphs in memory, on disk or in MongoDB.
//
// [server] - HTTP API for layouts, renders and saved graphs.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Pipeline, cache and HTTP hooks with a Prometheus
// implementation.
//
// [flame]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/flame
// [render]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/render
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/render/sink
// [render/tree]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/render/tree
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/pipeline
// [io]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/io
// [source/explain]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/source/explain
// [cache]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/cache
// [storage]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/storage
// [server]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/server
// [config]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/flametower/pkg/observability
package pkg
