package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

// Ensure ZeroLogger implements the interface
var _ Logger = (*ZeroLogger)(nil)

// New creates a zerolog-backed logger writing to stdout. Unknown level
// strings fall back to info. If pretty is true, output is formatted for
// human readability instead of JSON.
func New(level string, pretty bool) *ZeroLogger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(w, level)
}

// NewWithWriter creates a zerolog-backed logger writing to w. Tests use this
// to capture output.
func NewWithWriter(w io.Writer, level string) *ZeroLogger {
	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l := zerolog.New(w).With().Timestamp().Logger().Level(zLevel)
	return &ZeroLogger{zlog: &l}
}

// Noop returns a logger that discards every event.
func Noop() Logger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l}
}

// WithFields returns a logger with fields attached to all subsequent events.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	zl := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &zl}
}

// WithEntity returns a logger tagging every event with the owning entity,
// typically an account ident.
func (l *ZeroLogger) WithEntity(entity string) Logger {
	if entity == "" {
		entity = "?"
	}
	zl := l.zlog.With().Str("entity", entity).Logger()
	return &ZeroLogger{zlog: &zl}
}
