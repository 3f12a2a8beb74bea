package io

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/httputil"
)

func sampleDoc() *Document {
	return &Document{
		Title:     "checkout",
		ColorMode: flame.ColorModeWidth,
		Intervals: []flame.Interval{
			{ID: "root", Label: "handler", Start: 0, End: 120},
			{ID: "db", Label: "query", ParentID: "root", Start: 5.5, End: 80},
			{ID: "tpl", Label: "render", ParentID: "root", Start: 80, End: 118, ColorOverride: "#4c78a8"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(sampleDoc(), &buf, format); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := ReadCollection(&buf, format)
			if err != nil {
				t.Fatalf("ReadCollection() error = %v\n%s", err, buf.String())
			}
			if diff := cmp.Diff(sampleDoc(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		want   []string
		mode   flame.ColorMode
	}{
		{
			name:   "bare json array",
			format: FormatJSON,
			input:  `[{"id":"r","start":0,"end":1},{"id":"c","parent_id":"r","start":0,"end":1}]`,
			want:   []string{"r", "c"},
			mode:   flame.ColorModePeaks,
		},
		{
			name:   "yaml document",
			format: FormatYAML,
			input: `title: t
color_mode: WIDTH
intervals:
  - {id: r, label: root, start: 0, end: 10}
  - {id: c, parent_id: r, start: 0, end: 4}
`,
			want: []string{"r", "c"},
			mode: flame.ColorModeWidth,
		},
		{
			name:   "toml document",
			format: FormatTOML,
			input: `
[[intervals]]
id = "r"
start = 0.0
end = 10.0

[[intervals]]
id = "c"
parent_id = "r"
start = 1.0
end = 2.0
`,
			want: []string{"r", "c"},
			mode: flame.ColorModePeaks,
		},
		{
			name:   "empty yaml",
			format: FormatYAML,
			input:  "intervals: []\n",
			want:   nil,
			mode:   flame.ColorModePeaks,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			var ids []string
			for _, iv := range doc.Intervals {
				ids = append(ids, iv.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("Decode() ids mismatch (-want +got):\n%s", diff)
			}
			if doc.ColorMode != tt.mode {
				t.Errorf("ColorMode = %q, want %q", doc.ColorMode, tt.mode)
			}
			if doc.Intervals == nil {
				t.Error("Intervals = nil, want non-nil")
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		code   errs.Code
	}{
		{"malformed json", FormatJSON, `{"intervals": [`, errs.ErrCodeInvalidInput},
		{"malformed yaml", FormatYAML, "intervals: [\n", errs.ErrCodeInvalidInput},
		{"malformed toml", FormatTOML, "[[intervals]\n", errs.ErrCodeInvalidInput},
		{"bad color mode", FormatJSON, `{"color_mode":"depth","intervals":[]}`, errs.ErrCodeInvalidColorMode},
		{"empty id", FormatJSON, `[{"id":"","start":0,"end":1}]`, errs.ErrCodeInvalidInput},
		{"bad override", FormatJSON, `[{"id":"a","start":0,"end":1,"color":"red"}]`, errs.ErrCodeInvalidInput},
		{"unknown format", Format("xml"), `<x/>`, errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input), tt.format)
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("Decode() code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"trace.json", FormatJSON, false},
		{"a/b/trace.YML", FormatYAML, false},
		{"trace.toml", FormatTOML, false},
		{"https://example.com/x/trace.yaml?raw=1", FormatYAML, false},
		{"trace", "", true},
		{"trace.csv", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExportImportFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"doc.json", "doc.yaml", "doc.toml"} {
		path := filepath.Join(dir, name)
		if err := ExportFile(sampleDoc(), path); err != nil {
			t.Fatalf("ExportFile(%s) error = %v", name, err)
		}
		got, err := ImportFile(path)
		if err != nil {
			t.Fatalf("ImportFile(%s) error = %v", name, err)
		}
		if diff := cmp.Diff(sampleDoc(), got); diff != "" {
			t.Errorf("ImportFile(%s) mismatch (-want +got):\n%s", name, diff)
		}
	}

	_, err := ImportFile(filepath.Join(dir, "missing.json"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("ImportFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trace.yaml":
			_, _ = w.Write([]byte("intervals:\n  - {id: r, start: 0, end: 1}\n"))
		case "/trace":
			_, _ = w.Write([]byte(`[{"id":"r","start":0,"end":1}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := httputil.NewClient(srv.Client(), httputil.WithRetry(1, time.Millisecond))
	for _, path := range []string{"/trace.yaml", "/trace"} {
		doc, err := Load(context.Background(), srv.URL+path, client)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", path, err)
		}
		if len(doc.Intervals) != 1 || doc.Intervals[0].ID != "r" {
			t.Errorf("Load(%s) = %+v, want one interval r", path, doc.Intervals)
		}
	}

	_, err := Load(context.Background(), srv.URL+"/nope.json", client)
	if !errs.IsNotFound(err) {
		t.Errorf("Load(nope) error = %v, want not found", err)
	}
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(sampleDoc(), &buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"title": "checkout"`, `"parent_id": "root"`, `"color": "#4c78a8"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("WriteJSON() missing %s in\n%s", want, buf.String())
		}
	}
	if strings.Contains(buf.String(), `"parent_id": ""`) {
		t.Error("WriteJSON() emitted empty parent_id")
	}
}
