package glyphatlas

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with commits running on the
// renderer thread and diagnostics read from elsewhere.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by every Cache in this process.
// By default the cache produces no log output. Call SetLogger to enable
// logging, or pass nil to restore the silent default.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
//
// Log levels used by glyphatlas:
//   - [slog.LevelDebug]: per-commit fit/evict/rasterize/upload decisions.
//   - [slog.LevelInfo]: lifecycle events (cache built, cache emptied by Rebuild).
//   - [slog.LevelWarn]: eviction pressure, reorganizations, dropped glyphs.
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	glyphatlas.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger currently used by every Cache in this process.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
