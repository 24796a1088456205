package streamjson

import (
	"fmt"

	"github.com/deepankarm/streamjson/pkg/internal/errors"
)

// Re-exported error types so callers need not import an internal package.
type (
	StreamError  = errors.StreamError
	StreamErrors = errors.StreamErrors
	ErrorType    = errors.ErrorType
)

const (
	ErrorTypeMalformedCandidate = errors.ErrorTypeMalformedCandidate
	ErrorTypeBufferLimit        = errors.ErrorTypeBufferLimit
	ErrorTypeConfig             = errors.ErrorTypeConfig
)

var (
	// ErrMalformedCandidate matches every *MalformedError with errors.Is.
	ErrMalformedCandidate = errors.New(errors.ErrorTypeMalformedCandidate, "malformed candidate")

	// ErrUnknownFraming is returned by New for a framing it does not know.
	ErrUnknownFraming = errors.New(errors.ErrorTypeConfig, "unknown framing")
)

// MalformedError describes a candidate that was delimited correctly but did
// not parse as JSON. Decoders drop such candidates and keep going; the error
// is only ever handed to the logger and to WithMalformedHandler.
type MalformedError struct {
	// Offset is the position of the candidate's first byte in the stream.
	Offset int64
	// Raw is the dropped text.
	Raw string
	// Err is the underlying JSON syntax error.
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed candidate at offset %d (%d bytes): %v", e.Offset, len(e.Raw), e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMalformedCandidate) match.
func (e *MalformedError) Is(target error) bool {
	t, ok := target.(*errors.StreamError)
	return ok && t.Type == errors.ErrorTypeMalformedCandidate
}
