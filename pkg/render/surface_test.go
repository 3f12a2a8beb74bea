package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
)

func sampleLayout() flame.Layout {
	return flame.Build([]flame.Interval{
		{ID: "root", Label: "main", Start: 0, End: 10},
		{ID: "a", Label: "work", ParentID: "root", Start: 0, End: 6},
	})
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("gif"); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("ParseFormat(gif) error = %v, want INVALID_FORMAT", err)
	}

	got, err := ParseFormats([]string{"svg", "json", "SVG"})
	if err != nil || len(got) != 2 {
		t.Errorf("ParseFormats() = %v, %v, want [svg json]", got, err)
	}
}

func TestFormatMetadata(t *testing.T) {
	tests := []struct {
		f          Format
		ext, ctype string
		binary     bool
	}{
		{FormatSVG, ".svg", "image/svg+xml", false},
		{FormatTree, ".tree.svg", "image/svg+xml", false},
		{FormatJSON, ".json", "application/json", false},
		{FormatPNG, ".png", "image/png", true},
		{FormatTerm, ".txt", "text/plain; charset=utf-8", false},
	}
	for _, tt := range tests {
		if tt.f.Extension() != tt.ext || tt.f.ContentType() != tt.ctype || tt.f.Binary() != tt.binary {
			t.Errorf("%s metadata = %s, %s, %v", tt.f, tt.f.Extension(), tt.f.ContentType(), tt.f.Binary())
		}
	}
}

func TestWithSVGAndJSON(t *testing.T) {
	ctx := context.Background()
	l := sampleLayout()

	svg, err := Bytes(ctx, FormatSVG, l, Options{Title: "demo"})
	if err != nil {
		t.Fatalf("Bytes(svg) error = %v", err)
	}
	if !bytes.Contains(svg, []byte("demo")) || !bytes.HasPrefix(svg, []byte("<svg")) {
		t.Errorf("Bytes(svg) = %.80s", svg)
	}

	data, err := Bytes(ctx, FormatJSON, l, Options{Width: 500})
	if err != nil {
		t.Fatalf("Bytes(json) error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if out["width"] != 500.0 {
		t.Errorf("width = %v, want 500", out["width"])
	}
}

func TestSurfaceLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, FormatTerm, Options{TermWidth: 10})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var buf bytes.Buffer
	if err := s.Render(ctx, sampleLayout(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "main") {
		t.Errorf("Render(term) = %q", buf.String())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := s.Render(ctx, sampleLayout(), &buf); err == nil {
		t.Error("Render() after Close() succeeded")
	}
}

func TestWithPropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := With(context.Background(), FormatSVG, Options{}, func(Surface) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("With() = %v, want boom", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Bytes(ctx, FormatSVG, sampleLayout(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Bytes() error = %v, want context.Canceled", err)
	}
}

func TestOpenInvalidFormat(t *testing.T) {
	if _, err := Open(context.Background(), Format("gif"), Options{}); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("Open(gif) error = %v, want INVALID_FORMAT", err)
	}
}
