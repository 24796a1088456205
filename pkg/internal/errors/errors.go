// Package errors defines shared error types for streamjson.
package errors

import (
	"fmt"
	"strings"
)

// ErrorType is an enum for stream error categories.
type ErrorType string

// Error type constants.
const (
	ErrorTypeMalformedCandidate ErrorType = "malformed_candidate" // Brace-balanced text that is not valid JSON
	ErrorTypeBufferLimit        ErrorType = "buffer_limit"        // Decoder buffer grew past the owner's bound
	ErrorTypeNonStringPayload   ErrorType = "non_string_payload"  // Coalescible event carried a non-string payload
	ErrorTypeSink               ErrorType = "sink"                // Downstream sink rejected a delivery
	ErrorTypeConfig             ErrorType = "config"              // Configuration failed to load or validate
	ErrorTypeClosed             ErrorType = "closed"              // Operation on a closed session or broker
)

// StreamError is an error with a category and an optional location,
// e.g. the session ID and event tag it belongs to.
type StreamError struct {
	Type    ErrorType
	Loc     []string
	Message string
	Err     error
}

// New creates a StreamError without a cause.
func New(typ ErrorType, message string, loc ...string) *StreamError {
	return &StreamError{Type: typ, Loc: loc, Message: message}
}

// Wrap creates a StreamError around cause. A nil cause yields nil.
func Wrap(typ ErrorType, cause error, message string, loc ...string) error {
	if cause == nil {
		return nil
	}
	return &StreamError{Type: typ, Loc: loc, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	var b strings.Builder
	if len(e.Loc) > 0 {
		b.WriteString(strings.Join(e.Loc, "."))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a StreamError of the same type.
// Sentinels are plain StreamErrors, so errors.Is(err, ErrBufferLimit)
// matches any buffer_limit error regardless of location or cause.
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// At returns a copy of e with loc appended to its location.
func (e *StreamError) At(loc ...string) *StreamError {
	c := *e
	c.Loc = append(append([]string(nil), e.Loc...), loc...)
	return &c
}

// StreamErrors is a slice of StreamError that implements error.
type StreamErrors []*StreamError

// Error implements the error interface.
func (es StreamErrors) Error() string {
	if len(es) == 0 {
		return "stream errors: (none)"
	}
	if len(es) == 1 {
		return es[0].Error()
	}
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("stream errors (%d): %s", len(es), strings.Join(msgs, "; "))
}

// Unwrap returns the errors as a slice for errors.As/errors.Is compatibility.
func (es StreamErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// Has reports whether any error in the slice has the given type.
func (es StreamErrors) Has(typ ErrorType) bool {
	for _, e := range es {
		if e.Type == typ {
			return true
		}
	}
	return false
}

// ErrOrNil returns nil for an empty slice so callers can return it directly.
func (es StreamErrors) ErrOrNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
