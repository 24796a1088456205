package streamjson

import (
	"log/slog"
)

// Option configures a decoder.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	onMalformed func(*MalformedError)
	useNumber   bool
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithLogger sets the logger used for dropped-candidate diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMalformedHandler registers fn to be called synchronously, from within
// Parse, for every candidate that is dropped because it is not valid JSON.
func WithMalformedHandler(fn func(*MalformedError)) Option {
	return func(o *options) {
		o.onMalformed = fn
	}
}

// WithUseNumber decodes numbers into json.Number instead of float64, so
// large integer IDs survive unchanged.
func WithUseNumber() Option {
	return func(o *options) {
		o.useNumber = true
	}
}
