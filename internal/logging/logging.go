// Package logging configures the process-wide slog default. Warnings and
// errors are always visible; verbose mode opens the debug level.
package logging

import (
	"log/slog"
	"os"
)

// Init installs the default logger. verbose lowers the level to debug.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
