package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger used by both binaries. Records carry the
// active trace and span ids when a span is on the context.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
