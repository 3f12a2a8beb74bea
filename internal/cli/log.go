// Package cli implements the flametower command-line interface.
//
// Commands load interval documents (JSON, YAML, TOML, stdin or http(s)
// URLs), lay them out as flame graphs and render or serve the result. The
// CLI is built using cobra and logs with charmbracelet/log.
//
// # Commands
//
//   - render: Generate SVG, PNG, PDF, JSON, tree or terminal output
//   - validate: Check a document's hierarchy and report diagnostics
//   - explain: Convert PostgreSQL EXPLAIN (FORMAT JSON) output to a flame graph
//   - view: Browse a flame graph interactively in the terminal
//   - serve: Run the HTTP API
//   - cache: Manage the render cache
//
// # Configuration
//
// Defaults come from $XDG_CONFIG_HOME/flametower/config.toml (or --config)
// and FLAMETOWER_* environment variables; flags always win.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger that writes to w at level with short
// "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of a command with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, rounded to the millisecond.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or fallback.
func loggerFromContext(ctx context.Context, fallback *log.Logger) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok && l != nil {
		return l
	}
	return fallback
}
