package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flametower/pkg/cache"
	"github.com/matzehuels/flametower/pkg/httputil"
	fio "github.com/matzehuels/flametower/pkg/io"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching logic lives in one place.
//
// The Runner is stateless except for its cache, HTTP client and logger; it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	HTTP   *httputil.Client
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		HTTP:   httputil.NewClient(nil),
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline for src, a file
// path or an http(s) URL.
func (r *Runner) Execute(ctx context.Context, src string, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	loadStart := time.Now()
	doc, sourceHit, err := r.LoadWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(loadStart)

	result, err := r.Run(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	result.CacheInfo.SourceHit = sourceHit
	return result, nil
}

// Run lays out and renders an already loaded document.
func (r *Runner) Run(ctx context.Context, doc *fio.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Title == "" {
		opts.Title = doc.Title
	}

	result := &Result{
		Document:  doc,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.Intervals = len(doc.Intervals)

	// Stage 1: Layout
	layoutStart := time.Now()
	l, hash, layoutHit, err := r.layout(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.DocumentHash = hash
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Rects = len(l.Rects)
	result.Stats.Levels = l.Levels()
	result.Stats.Diagnostics = len(l.Diagnostics)
	result.CacheInfo.LayoutHit = layoutHit

	opts.Logger.Info("computed layout",
		"valid", l.Valid(),
		"rects", len(l.Rects),
		"levels", l.Levels(),
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
