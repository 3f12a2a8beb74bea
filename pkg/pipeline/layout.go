package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/flametower/pkg/cache"
	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/observability"
)

// =============================================================================
// Layout Generation
// =============================================================================

// BuildLayout computes the flame graph layout of doc without caching.
//
// The color mode is taken from opts, then from the document, then the
// default. When opts.Unit is set every rectangle gets a tooltip with its
// width and share of the total span.
func BuildLayout(doc *fio.Document, opts Options) flame.Layout {
	mode := opts.colorMode(doc)
	palette := opts.palette
	if palette == (flame.Palette{}) {
		palette = flame.DefaultPalette
	}
	buildOpts := []flame.Option{
		flame.WithColorMode(mode),
		flame.WithPalette(palette),
		flame.WithLogger(opts.Logger),
	}
	if opts.Unit != "" {
		buildOpts = append(buildOpts, flame.WithTooltipFunc(flame.DurationTooltip(span(doc.Intervals), opts.Unit)))
	}
	return flame.Build(doc.Intervals, buildOpts...)
}

// span is the horizontal extent of the root, or of all intervals when there
// is no single root.
func span(items []flame.Interval) float64 {
	if v := flame.Validate(items); v.Valid {
		for i := len(items) - 1; i >= 0; i-- {
			if items[i].IsRoot() {
				return items[i].Width()
			}
		}
	}
	var lo, hi float64
	for i, iv := range items {
		if i == 0 || iv.Start < lo {
			lo = iv.Start
		}
		if i == 0 || iv.End > hi {
			hi = iv.End
		}
	}
	return hi - lo
}

// LayoutWithCacheInfo computes a layout with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, doc *fio.Document, opts Options) (flame.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return flame.Layout{}, false, err
	}
	l, _, hit, err := r.layout(ctx, doc, opts)
	return l, hit, err
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, doc *fio.Document, opts Options) (flame.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, doc, opts)
	return l, err
}

// layout expects validated options. It returns the layout, the document
// hash and whether the layout came from the cache.
func (r *Runner) layout(ctx context.Context, doc *fio.Document, opts Options) (flame.Layout, string, bool, error) {
	mode := opts.colorMode(doc)
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(mode), len(doc.Intervals))
	start := time.Now()

	docHash, err := cache.HashJSON(doc.Intervals)
	if err != nil {
		return flame.Layout{}, "", false, err
	}
	cacheKey := r.Keyer.LayoutKey(docHash, opts.LayoutKeyOpts(mode))
	cacheHooks := observability.Cache()

	finish := func(l flame.Layout) {
		hooks.OnLayoutComplete(ctx, string(mode), observability.LayoutStats{
			Valid:       l.Valid(),
			Rects:       len(l.Rects),
			Levels:      l.Levels(),
			Diagnostics: len(l.Diagnostics),
		}, time.Since(start))
	}

	// Try cache first
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached flame.Layout
			if err := json.Unmarshal(data, &cached); err == nil {
				cacheHooks.OnCacheHit(ctx, "layout")
				flame.LogDiagnostics(opts.Logger, cached.Diagnostics)
				finish(cached)
				return cached, docHash, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		cacheHooks.OnCacheMiss(ctx, "layout")
	}

	l := BuildLayout(doc, opts)
	finish(l)

	if data, err := json.Marshal(l); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			opts.Logger.Warn("cache write failed", "key", "layout", "error", err)
		} else {
			cacheHooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return l, docHash, false, nil
}
