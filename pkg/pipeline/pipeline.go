// Package pipeline provides the load → layout → render pipeline for Flametower.
//
// The CLI and the HTTP server both drive flame graphs through a [Runner], so
// defaults, caching and instrumentation behave the same at every entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read an interval document from a file or an http(s) URL
//  2. Layout: validate, resolve and color the intervals ([flame.Build])
//  3. Render: draw the layout in one or more output formats
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, "trace.json", pipeline.Options{
//	    ColorMode: flame.ColorModeWidth,
//	    Formats:   []string{"svg", "png"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// An invalid hierarchy is not an error: the layout carries the validation
// failure and every format renders its empty state.
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flametower/pkg/cache"
	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0

	// MaxWidth bounds the rendered canvas width in pixels.
	MaxWidth = 16384.0
)

// DefaultFormats is used when no output format is requested.
var DefaultFormats = []string{string(render.FormatSVG)}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the flame graph pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options
	ColorMode flame.ColorMode `json:"color_mode,omitempty"`
	Palette   []string        `json:"palette,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Width     float64  `json:"width,omitempty"`
	RowHeight float64  `json:"row_height,omitempty"`
	Title     string   `json:"title,omitempty"`
	Inverted  bool     `json:"inverted,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	Scale     float64  `json:"scale,omitempty"`
	TermWidth int      `json:"term_width,omitempty"`

	// Refresh bypasses cached sources, layouts and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	palette flame.Palette
	formats []render.Format
	// validated tracks whether Validate has succeeded.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the loaded interval document.
	Document *fio.Document

	// DocumentHash is the content hash of the document's intervals.
	DocumentHash string

	// Layout is the computed flame graph.
	Layout flame.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Intervals   int
	Rects       int
	Levels      int
	Diagnostics int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SourceHit bool // Whether a remote document came from cache
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// Validate checks every field and applies defaults. It is idempotent.
func (o *Options) Validate() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout checks the color options.
func (o *Options) ValidateForLayout() error {
	if o.ColorMode != "" {
		mode, err := flame.ParseColorMode(string(o.ColorMode))
		if err != nil {
			return err
		}
		o.ColorMode = mode
	}
	o.palette = flame.DefaultPalette
	if len(o.Palette) > 0 {
		p, err := flame.ParsePalette(o.Palette)
		if err != nil {
			return err
		}
		o.palette = p
	}
	o.setLogger()
	return nil
}

// ValidateForRender checks the output options and applies render defaults.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	formats, err := render.ParseFormats(o.Formats)
	if err != nil {
		return err
	}
	o.formats = formats
	if o.Width < 0 || o.Width > MaxWidth {
		return errs.New(errs.ErrCodeInvalidInput, "width must be between 0 and %g, got %g", MaxWidth, o.Width)
	}
	if o.RowHeight < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "row height must not be negative, got %g", o.RowHeight)
	}
	if o.Scale <= 0 || o.Scale > 8 {
		return errs.New(errs.ErrCodeInvalidInput, "scale must be in (0, 8], got %g", o.Scale)
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	o.setLogger()
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// colorMode resolves the effective mode: explicit option, then the
// document's mode, then the default.
func (o *Options) colorMode(doc *fio.Document) flame.ColorMode {
	if o.ColorMode != "" {
		return o.ColorMode
	}
	if doc != nil && doc.ColorMode != "" {
		return doc.ColorMode
	}
	return flame.DefaultColorMode
}

// RenderOptions returns the surface options for these pipeline options.
func (o *Options) RenderOptions() render.Options {
	return render.Options{
		Width:     o.Width,
		RowHeight: o.RowHeight,
		Title:     o.Title,
		Inverted:  o.Inverted,
		Unit:      o.Unit,
		Scale:     o.Scale,
		TermWidth: o.TermWidth,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts(mode flame.ColorMode) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{ColorMode: mode, Palette: o.palette, Unit: o.Unit}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format render.Format) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:    string(format),
		Width:     o.Width,
		RowHeight: o.RowHeight,
		Title:     o.Title,
		Inverted:  o.Inverted,
		Unit:      o.Unit,
		Scale:     o.Scale,
	}
}

// String implements fmt.Stringer for debugging.
func (o Options) String() string {
	return fmt.Sprintf("pipeline.Options{mode: %q, formats: %v, width: %g}", o.ColorMode, o.Formats, o.Width)
}
