// Package cache stores rendered flame graph artifacts.
//
// # Overview
//
// The layout core recomputes everything on every call; caching lives one
// level up, in the pipeline, where rendered SVG/PNG/PDF output and fetched
// remote documents are keyed by a content hash of their inputs:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI)
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: disables caching
//
// Keys come from a [Keyer]. [ScopedKeyer] prefixes keys so several tenants
// can share one backend.
//
// # Transient Errors
//
// Backends wrap transient failures with [Retryable]; callers retry them with
// [RetryWithBackoff].
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	// TTLArtifact bounds rendered output. Keys are content hashes, so this
	// only limits disk use.
	TTLArtifact = 7 * 24 * time.Hour

	// TTLLayout bounds computed layouts.
	TTLLayout = 24 * time.Hour

	// TTLSource bounds fetched remote documents.
	TTLSource = time.Hour
)

// Cache is a byte store with per-entry expiry. Get reports a miss with
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
