package debounce

import (
	"log/slog"
	"time"
)

// Config controls delivery timing. Zero fields take their defaults.
type Config struct {
	// Interval is how long the stream must stay quiet after the last
	// coalescible event before pending content is delivered. Default: 50ms.
	Interval time.Duration
	// MaxWait bounds how long content may stay pending under continuous
	// arrival, counted from the first event buffered since the last flush.
	// Default: 100ms.
	MaxWait time.Duration
	// Strict rejects coalescible events whose payload is not a string with
	// ErrNonStringPayload. When false such payloads contribute nothing.
	Strict bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// OnError receives sink errors from timer-triggered flushes, which have
	// no caller to return to. Default: log at Error level.
	OnError func(error)
	// Clock defaults to the wall clock.
	Clock Clock
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 50 * time.Millisecond
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OnError == nil {
		logger := c.Logger
		c.OnError = func(err error) {
			logger.Error("debounce: timed flush failed", "error", err)
		}
	}
	if c.Clock == nil {
		c.Clock = wallClock{}
	}
}

// Clock is the time source. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback.
type Timer interface {
	Stop() bool
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
