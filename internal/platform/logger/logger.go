package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured logger. JSON output keeps log lines
// machine-parseable for the ops pipeline.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
