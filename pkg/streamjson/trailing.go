package streamjson

import (
	"encoding/json"

	"github.com/deepankarm/streamjson/pkg/internal/partialjson"
)

// Trailing describes text left in a decoder when the stream ended.
// It is informational: the text was never emitted as a value.
type Trailing struct {
	// Text is the leftover text, whitespace-trimmed.
	Text string
	// Repaired is Text closed into valid JSON where possible. Text that
	// does not start a JSON value repairs to null.
	Repaired json.RawMessage
	// Incomplete lists dotted paths of the values that were cut off.
	Incomplete []string
	// TruncatedAt is "string", "object", "array", "key", "value", or
	// "complete" when Text was a whole value on its own.
	TruncatedAt string

	incomplete [][]string
}

func newTrailing(text string, strict bool) *Trailing {
	var res *partialjson.Result
	if strict {
		res = partialjson.RepairStrict([]byte(text))
	} else {
		res = partialjson.Repair([]byte(text))
	}
	return &Trailing{
		Text:        text,
		Repaired:    json.RawMessage(res.Repaired),
		Incomplete:  res.Paths(),
		TruncatedAt: string(res.TruncatedAt),
		incomplete:  res.Incomplete,
	}
}

// Truncates reports whether the value at the dotted path, or one of its
// parents, was cut off.
func (t *Trailing) Truncates(path string) bool {
	return partialjson.NewPathSet(t.incomplete).Covers(path)
}

// Value decodes Repaired into a generic value.
func (t *Trailing) Value() (any, error) {
	var v any
	err := json.Unmarshal(t.Repaired, &v)
	return v, err
}
