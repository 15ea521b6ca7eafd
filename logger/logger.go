package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const loggerKey contextKey = "logger"

// ParseLevel maps a configured level name to a zerolog level. Unknown names fall back to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch logLevel {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New builds a console logger writing to w at the given level.
func New(w io.Writer, logLevel string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	if f, ok := w.(*os.File); !ok || f != os.Stderr {
		out.NoColor = true
	}
	return zerolog.New(out).Level(ParseLevel(logLevel)).With().Timestamp().Logger()
}

// AddLoggerToContext returns a context carrying a logger for w at the given level.
func AddLoggerToContext(ctx context.Context, logLevel string, w io.Writer) context.Context {
	l := New(w, logLevel)
	return WithLogger(ctx, &l)
}

// WithLogger stores an existing logger in ctx.
func WithLogger(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from the context. A context without one yields a
// disabled logger so library code can log unconditionally.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	nop := zerolog.Nop()
	return &nop
}
