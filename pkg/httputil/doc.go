// Package httputil fetches remote interval documents.
//
// [Client.Fetch] downloads a document with a bounded body size and retries
// transient failures (network errors, 5xx and 429 responses) through [Retry]
// with exponential backoff:
//
//	c := httputil.NewClient(nil)
//	data, err := c.Fetch(ctx, "https://example.com/trace.json")
//
// Non-retryable failures carry a [errors.Code] from pkg/errors: a 404 maps
// to NOT_FOUND, other 4xx responses to NETWORK_ERROR.
package httputil
