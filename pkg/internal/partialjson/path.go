package partialjson

import "strings"

// JoinPath joins a JSON path slice into dotted form.
// Array indices like "[0]" attach without a dot: items[0].name.
func JoinPath(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// PathSet is a set of dotted JSON paths.
type PathSet map[string]struct{}

// NewPathSet builds a PathSet from path slices.
func NewPathSet(paths [][]string) PathSet {
	set := make(PathSet, len(paths))
	for _, p := range paths {
		set[JoinPath(p)] = struct{}{}
	}
	return set
}

// Covers reports whether path or one of its ancestors is in the set.
// If "user" was cut off, so was "user.name".
func (s PathSet) Covers(path string) bool {
	if _, ok := s[path]; ok {
		return true
	}
	for i := len(path) - 1; i > 0; i-- {
		if path[i] != '.' && path[i] != '[' {
			continue
		}
		if _, ok := s[path[:i]]; ok {
			return true
		}
	}
	return false
}

// Truncates reports whether the value at path was cut off in the input.
func (r *Result) Truncates(path string) bool {
	return NewPathSet(r.Incomplete).Covers(path)
}
