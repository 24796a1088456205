package streamjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodedValue is one JSON value recognized in the stream.
type DecodedValue struct {
	// Value is the parsed value: map[string]any, []any, string,
	// float64 (or json.Number with WithUseNumber), bool or nil.
	Value any
	// Raw is the exact text the value was parsed from.
	Raw string
}

// Unmarshal decodes the raw text into v.
func (d DecodedValue) Unmarshal(v any) error {
	return json.Unmarshal([]byte(d.Raw), v)
}

// ChunkDecoder is implemented by both framings.
type ChunkDecoder interface {
	// Parse appends chunk to the buffer and returns every value completed
	// by it, in stream order. Incomplete trailing data is kept for the next call.
	Parse(chunk string) []DecodedValue
	// Flush returns buffered text that never formed a value, trimmed,
	// and resets the decoder. ok is false when nothing was buffered.
	Flush() (rest string, ok bool)
	// FlushPartial is Flush plus a best-effort repair of the leftover text.
	FlushPartial() *Trailing
	// Reset discards all buffered data and state.
	Reset()
	// BufferLength is the number of buffered bytes.
	BufferLength() int
	// HasPartialObject reports whether a value has started but not completed.
	HasPartialObject() bool
}

// Framing selects how value boundaries are found.
type Framing string

const (
	// FramingBrace finds top-level objects by brace balance.
	FramingBrace Framing = "brace"
	// FramingLine expects one JSON value per newline-terminated line.
	FramingLine Framing = "line"
)

// New returns a decoder for the given framing. An empty framing means FramingBrace.
func New(framing Framing, opts ...Option) (ChunkDecoder, error) {
	switch framing {
	case FramingBrace, "":
		return NewDecoder(opts...), nil
	case FramingLine:
		return NewLineDecoder(opts...), nil
	}
	return nil, ErrUnknownFraming.At(string(framing))
}

const previewLen = 120

// decode parses one candidate, reporting it through the options on failure.
func (o *options) decode(raw []byte, offset int64) (DecodedValue, bool) {
	var v any
	var err error
	if o.useNumber {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err = dec.Decode(&v); err == nil && dec.More() {
			err = fmt.Errorf("unexpected data after value")
		}
	} else {
		err = json.Unmarshal(raw, &v)
	}
	if err == nil {
		return DecodedValue{Value: v, Raw: string(raw)}, true
	}

	merr := &MalformedError{Offset: offset, Raw: string(raw), Err: err}
	preview := merr.Raw
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	o.logger.Warn("streamjson: dropping malformed candidate",
		"offset", offset,
		"bytes", len(raw),
		"preview", preview,
		"error", err,
	)
	if o.onMalformed != nil {
		o.onMalformed(merr)
	}
	return DecodedValue{}, false
}
