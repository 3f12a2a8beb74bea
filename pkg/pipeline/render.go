package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flametower/pkg/cache"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/observability"
	"github.com/matzehuels/flametower/pkg/render"
)

// Render draws l in every format of opts without caching. Formats render
// concurrently, each on its own surface.
func Render(ctx context.Context, l flame.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return renderFormats(ctx, l, opts.formats, opts)
}

func renderFormats(ctx context.Context, l flame.Layout, formats []render.Format, opts Options) (map[string][]byte, error) {
	var mu sync.Mutex
	artifacts := make(map[string][]byte, len(formats))

	g, gctx := errgroup.WithContext(ctx)
	ropts := opts.RenderOptions()
	for _, f := range formats {
		g.Go(func() error {
			data, err := render.Bytes(gctx, f, l, ropts)
			if err != nil {
				return fmt.Errorf("render %s: %w", f, err)
			}
			mu.Lock()
			artifacts[string(f)] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// RenderWithCacheInfo generates artifacts with caching and reports whether
// every artifact came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l flame.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, allCached, err := r.render(ctx, l, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, allCached, err
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l flame.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

func (r *Runner) render(ctx context.Context, l flame.Layout, opts Options) (map[string][]byte, bool, error) {
	layoutHash, err := cache.HashJSON(l)
	if err != nil {
		return nil, false, fmt.Errorf("hash layout for cache key: %w", err)
	}
	cacheHooks := observability.Cache()

	artifacts := make(map[string][]byte, len(opts.formats))
	var missing []render.Format
	for _, f := range opts.formats {
		if !opts.Refresh {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(f))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				cacheHooks.OnCacheHit(ctx, "artifact")
				artifacts[string(f)] = data
				continue
			}
			cacheHooks.OnCacheMiss(ctx, "artifact")
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		return artifacts, true, nil // All artifacts from cache
	}

	rendered, err := renderFormats(ctx, l, missing, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(render.Format(format)))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			opts.Logger.Warn("cache write failed", "key", "artifact", "format", format, "error", err)
			continue
		}
		cacheHooks.OnCacheSet(ctx, "artifact", len(data))
	}
	return artifacts, false, nil
}
