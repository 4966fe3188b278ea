// Package logging configures log/slog for the importer.
//
// Loggers taken from a request context carry chi's request id, so every
// line written while importing one upload can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the process-wide slog logger writing to stdout.
//
// Level values: "debug", "info", "warn" (or "warning"), "error".
// Unknown values fall back to "info".
//
// Format values: "json" for the JSON handler, anything else for text.
// Production deployments ship JSON to the log collector; text is easier
// to read in a terminal while developing.
//
// Usage:
//
//	cfg, err := config.Load()
//	...
//	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
//	slog.Info("configuration loaded", "config", cfg.String())
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger without installing it. Tests use it to capture
// output in a buffer.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with request context.
//
// When ctx came through chi's RequestID middleware the logger carries a
// request_id attribute, so every line written while handling one upload
// (parse, per-row rejects, batch finalize) can be grouped together.
// Outside a request it is just slog.Default().
//
// Usage:
//
//	func (s *Server) handleRevertBatch(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("reverting batch", "batch_id", id)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := middleware.GetReqID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}

// WithFields returns a request logger carrying extra attributes. Use it for
// a multi-step operation whose lines should all share the same keys.
//
// Fields used by the import pipeline:
//   - import_type: "live" or "order"
//   - batch_id: the import batch being written
//   - file: the uploaded file name
//
// Usage:
//
//	logger := logging.WithFields(ctx, "import_type", "live", "batch_id", id)
//	logger.Info("import finished", "rows", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
