package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// event adapts a zerolog event to the Event interface. zerolog events mutate
// in place, so field methods update the wrapped event and return the receiver.
type event struct {
	e *zerolog.Event
}

// Msg sends the event with the given message.
func (ev *event) Msg(msg string) {
	ev.e.Msg(msg)
}

// Msgf sends the event with a formatted message.
func (ev *event) Msgf(format string, args ...any) {
	ev.e.Msgf(format, args...)
}

// Err adds an error to the event.
func (ev *event) Err(err error) Event {
	ev.e = ev.e.Err(err)
	return ev
}

// Str adds a string field to the event.
func (ev *event) Str(key, value string) Event {
	ev.e = ev.e.Str(key, value)
	return ev
}

// Bool adds a boolean field to the event.
func (ev *event) Bool(key string, value bool) Event {
	ev.e = ev.e.Bool(key, value)
	return ev
}

// Int adds an integer field to the event.
func (ev *event) Int(key string, value int) Event {
	ev.e = ev.e.Int(key, value)
	return ev
}

// Int64 adds an int64 field to the event.
func (ev *event) Int64(key string, value int64) Event {
	ev.e = ev.e.Int64(key, value)
	return ev
}

// Float64 adds a float64 field to the event.
func (ev *event) Float64(key string, value float64) Event {
	ev.e = ev.e.Float64(key, value)
	return ev
}

// Dur adds a duration field to the event.
func (ev *event) Dur(key string, d time.Duration) Event {
	ev.e = ev.e.Dur(key, d)
	return ev
}

// Time adds a timestamp field to the event.
func (ev *event) Time(key string, t time.Time) Event {
	ev.e = ev.e.Time(key, t)
	return ev
}

// Interface adds an arbitrary field to the event.
func (ev *event) Interface(key string, i any) Event {
	ev.e = ev.e.Interface(key, i)
	return ev
}

// Bytes adds a byte slice field to the event.
func (ev *event) Bytes(key string, val []byte) Event {
	ev.e = ev.e.Bytes(key, val)
	return ev
}

// Debug creates a debug-level log event.
func (l *ZeroLogger) Debug() Event {
	return &event{e: l.zlog.Debug()}
}

// Info creates an info-level log event.
func (l *ZeroLogger) Info() Event {
	return &event{e: l.zlog.Info()}
}

// Warn creates a warning-level log event.
func (l *ZeroLogger) Warn() Event {
	return &event{e: l.zlog.Warn()}
}

// Error creates an error-level log event.
func (l *ZeroLogger) Error() Event {
	return &event{e: l.zlog.Error()}
}
