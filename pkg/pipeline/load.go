package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/flametower/pkg/cache"
	"github.com/matzehuels/flametower/pkg/httputil"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/observability"
)

// LoadWithCacheInfo reads the document at src and reports whether a remote
// document came from the cache. Local files are always read from disk.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, src string, opts Options) (*fio.Document, bool, error) {
	r.applyLogger(&opts)
	hooks := observability.Pipeline()
	kind := sourceKind(src)
	hooks.OnLoadStart(ctx, kind)
	start := time.Now()

	doc, hit, err := r.load(ctx, src, opts)

	n := 0
	if doc != nil {
		n = len(doc.Intervals)
	}
	hooks.OnLoadComplete(ctx, kind, n, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	opts.Logger.Debug("loaded document", "source", src, "intervals", n, "cached", hit)
	return doc, hit, nil
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards the cache hit info.
func (r *Runner) Load(ctx context.Context, src string, opts Options) (*fio.Document, error) {
	doc, _, err := r.LoadWithCacheInfo(ctx, src, opts)
	return doc, err
}

func (r *Runner) load(ctx context.Context, src string, opts Options) (*fio.Document, bool, error) {
	if !fio.IsRemote(src) {
		doc, err := fio.ImportFile(src)
		return doc, false, err
	}

	format, err := fio.FormatFromPath(src)
	if err != nil {
		format = fio.FormatJSON
	}
	cacheKey := r.Keyer.SourceKey(src)
	cacheHooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if doc, err := fio.Decode(data, format); err == nil {
				cacheHooks.OnCacheHit(ctx, "source")
				return doc, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, "source")
	}

	client := r.HTTP
	if client == nil {
		client = httputil.NewClient(nil)
	}
	data, err := client.Fetch(ctx, src)
	if err != nil {
		return nil, false, err
	}
	doc, err := fio.Decode(data, format)
	if err != nil {
		return nil, false, err
	}

	// Only documents that decode are worth caching.
	if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLSource); err != nil {
		opts.Logger.Warn("cache write failed", "key", "source", "error", err)
	} else {
		cacheHooks.OnCacheSet(ctx, "source", len(data))
	}
	return doc, false, nil
}

func sourceKind(src string) string {
	if fio.IsRemote(src) {
		return "remote"
	}
	return "file"
}
