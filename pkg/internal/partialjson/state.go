package partialjson

// Truncation names the construct the input was cut off in.
type Truncation string

const (
	Complete Truncation = "complete"
	InString Truncation = "string"
	InObject Truncation = "object"
	InArray  Truncation = "array"
	InKey    Truncation = "key"
	InValue  Truncation = "value"
)

// Result is the outcome of repairing a possibly truncated JSON text.
type Result struct {
	// Repaired is valid JSON with truncated parts closed or removed.
	Repaired []byte

	// Incomplete lists the JSON paths that were cut off,
	// e.g. ["tasks", "[1]", "title"] when tasks[1].title was truncated.
	// Truncation of the root value itself produces no entry.
	Incomplete [][]string

	// TruncatedAt is the innermost construct the input ended in.
	TruncatedAt Truncation
}

// Paths returns Incomplete joined into dotted form, e.g. "tasks[1].title".
func (r *Result) Paths() []string {
	if len(r.Incomplete) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Incomplete))
	for _, p := range r.Incomplete {
		out = append(out, JoinPath(p))
	}
	return out
}

// IsComplete reports whether the input needed no repair.
func (r *Result) IsComplete() bool {
	return r.TruncatedAt == Complete
}
