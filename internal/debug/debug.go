// Package debug provides context-based debug mode and zerolog setup.
package debug

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const debugKey contextKey = "debug_enabled"

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(debugKey).(bool); ok {
		return v
	}
	return false
}

// SetupLogger configures the global zerolog level and returns a logger
// writing human-readable lines to stderr.
func SetupLogger(debugEnabled bool) zerolog.Logger {
	return NewLogger(os.Stderr, debugEnabled)
}

// NewLogger builds a console logger on w. Debug mode lowers the level from
// warn to debug.
func NewLogger(w io.Writer, debugEnabled bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debugEnabled {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
