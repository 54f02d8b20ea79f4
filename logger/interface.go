// Package logger defines the structured logging contract used across the
// library and provides a zerolog-backed implementation plus a no-op fallback
// for embedders that do not wire diagnostics.
package logger

import "time"

// Logger is the contract for structured logging. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debug() Event
	Info() Event
	Warn() Event
	Error() Event
	WithFields(fields map[string]any) Logger
	WithEntity(entity string) Logger
}

// Event is a structured log event under construction. Field methods return
// the event for chaining; Msg or Msgf sends it.
type Event interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) Event
	Str(key, value string) Event
	Bool(key string, value bool) Event
	Int(key string, value int) Event
	Int64(key string, value int64) Event
	Float64(key string, value float64) Event
	Dur(key string, d time.Duration) Event
	Time(key string, t time.Time) Event
	Interface(key string, i any) Event
	Bytes(key string, val []byte) Event
}
