package partialjson

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// Repair closes a truncated JSON text so it can be decoded. Strings are
// closed where they end, dangling keys are dropped and open arrays and
// objects are closed. Raw control characters inside strings are escaped.
//
// Anything after the first complete root value is ignored.
func Repair(data []byte) *Result {
	return repair(data, false)
}

// RepairStrict is like Repair but treats a raw newline inside a string as
// the point of truncation. Use it for line-framed producers, where a newline
// can never be part of a value.
func RepairStrict(data []byte) *Result {
	return repair(data, true)
}

func repair(data []byte, strict bool) *Result {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Result{Repaired: []byte("{}"), TruncatedAt: Complete}
	}

	r := &repairer{in: data, strict: strict, out: make([]byte, 0, len(data)+8)}
	t := r.value()
	return &Result{Repaired: r.out, Incomplete: r.incomplete, TruncatedAt: t}
}

type repairer struct {
	in     []byte
	pos    int
	strict bool
	out    []byte

	path       []string
	incomplete [][]string
}

func (r *repairer) value() Truncation {
	r.skipSpace()
	if r.eof() {
		r.out = append(r.out, "null"...)
		return InValue
	}

	switch c := r.in[r.pos]; {
	case c == '{':
		return r.object()
	case c == '[':
		return r.array()
	case c == '"':
		return r.str()
	case c == 't':
		return r.literal("true")
	case c == 'f':
		return r.literal("false")
	case c == 'n':
		return r.literal("null")
	case c == '-' || isDigit(c):
		return r.number()
	}
	r.out = append(r.out, "null"...)
	return InValue
}

func (r *repairer) object() Truncation {
	r.pos++
	r.out = append(r.out, '{')
	state := Complete

	for members := 0; ; members++ {
		r.skipSpace()
		if r.eof() {
			state = InObject
			break
		}
		if r.in[r.pos] == '}' {
			r.pos++
			r.out = append(r.out, '}')
			return Complete
		}
		if members > 0 {
			if r.in[r.pos] != ',' {
				state = InObject
				break
			}
			r.pos++
			r.skipSpace()
		}
		if r.eof() || r.in[r.pos] != '"' {
			state = InKey
			break
		}

		mark := len(r.out)
		if members > 0 {
			r.out = append(r.out, ',')
		}
		keyStart := len(r.out)
		if t := r.str(); t != Complete {
			r.out = r.out[:mark]
			state = InKey
			break
		}
		key := string(r.out[keyStart+1 : len(r.out)-1])

		r.skipSpace()
		if r.eof() || r.in[r.pos] != ':' {
			r.flagWith(key)
			r.out = r.out[:mark]
			state = InKey
			break
		}
		r.pos++
		r.skipSpace()
		if r.eof() {
			r.flagWith(key)
			r.out = r.out[:mark]
			state = InValue
			break
		}

		r.out = append(r.out, ':')
		r.path = append(r.path, key)
		t := r.value()
		r.path = r.path[:len(r.path)-1]
		if t != Complete {
			state = t
			break
		}
	}

	r.out = append(r.out, '}')
	return state
}

func (r *repairer) array() Truncation {
	r.pos++
	r.out = append(r.out, '[')
	state := Complete

	for n := 0; ; n++ {
		r.skipSpace()
		if r.eof() {
			state = InArray
			break
		}
		if r.in[r.pos] == ']' {
			r.pos++
			r.out = append(r.out, ']')
			return Complete
		}
		if n > 0 {
			if r.in[r.pos] != ',' {
				state = InArray
				break
			}
			r.pos++
			r.skipSpace()
			if r.eof() {
				state = InArray
				break
			}
			r.out = append(r.out, ',')
		}

		r.path = append(r.path, "["+strconv.Itoa(n)+"]")
		t := r.value()
		r.path = r.path[:len(r.path)-1]
		if t != Complete {
			state = t
			break
		}
	}

	r.out = append(r.out, ']')
	return state
}

// str copies a string literal to out, closing it if the input ends inside it.
func (r *repairer) str() Truncation {
	r.pos++
	r.out = append(r.out, '"')

	for !r.eof() {
		c := r.in[r.pos]
		switch {
		case c == '"':
			r.pos++
			r.out = append(r.out, '"')
			return Complete

		case c == '\\':
			n := escapeLen(r.in[r.pos:])
			if n == 0 {
				return r.closeString()
			}
			r.out = append(r.out, r.in[r.pos:r.pos+n]...)
			r.pos += n

		case c == '\n' && r.strict:
			return r.closeString()

		case c < 0x20:
			r.out = append(r.out, `\u00`...)
			r.out = append(r.out, hexDigits[c>>4], hexDigits[c&0xf])
			r.pos++

		case c < utf8.RuneSelf:
			r.out = append(r.out, c)
			r.pos++

		default:
			if !utf8.FullRune(r.in[r.pos:]) {
				// Input ends mid-rune.
				return r.closeString()
			}
			_, size := utf8.DecodeRune(r.in[r.pos:])
			r.out = append(r.out, r.in[r.pos:r.pos+size]...)
			r.pos += size
		}
	}
	return r.closeString()
}

func (r *repairer) closeString() Truncation {
	r.out = append(r.out, '"')
	r.pos = len(r.in)
	r.flag()
	return InString
}

func (r *repairer) number() Truncation {
	start := r.pos
	if r.in[r.pos] == '-' {
		r.pos++
	}
	if r.eof() || !isDigit(r.in[r.pos]) {
		r.flag()
		r.out = append(r.out, '0')
		return InValue
	}

	if r.in[r.pos] == '0' {
		r.pos++
	} else {
		r.digits()
	}

	if !r.eof() && r.in[r.pos] == '.' {
		dot := r.pos
		r.pos++
		if r.digits() == 0 {
			r.flag()
			r.out = append(r.out, r.in[start:dot]...)
			return InValue
		}
	}

	if !r.eof() && (r.in[r.pos] == 'e' || r.in[r.pos] == 'E') {
		exp := r.pos
		r.pos++
		if !r.eof() && (r.in[r.pos] == '+' || r.in[r.pos] == '-') {
			r.pos++
		}
		if r.digits() == 0 {
			r.flag()
			r.out = append(r.out, r.in[start:exp]...)
			return InValue
		}
	}

	r.out = append(r.out, r.in[start:r.pos]...)
	return Complete
}

func (r *repairer) literal(word string) Truncation {
	for i := 0; i < len(word); i++ {
		if r.eof() || r.in[r.pos] != word[i] {
			r.flag()
			r.out = append(r.out, word...)
			return InValue
		}
		r.pos++
	}
	r.out = append(r.out, word...)
	return Complete
}

func (r *repairer) digits() int {
	n := 0
	for !r.eof() && isDigit(r.in[r.pos]) {
		r.pos++
		n++
	}
	return n
}

// flag records the current path as incomplete.
func (r *repairer) flag() {
	if len(r.path) == 0 {
		return
	}
	r.incomplete = append(r.incomplete, append([]string(nil), r.path...))
}

func (r *repairer) flagWith(key string) {
	r.path = append(r.path, key)
	r.flag()
	r.path = r.path[:len(r.path)-1]
}

func (r *repairer) skipSpace() {
	for !r.eof() {
		switch r.in[r.pos] {
		case ' ', '\t', '\n', '\r':
			r.pos++
		default:
			return
		}
	}
}

func (r *repairer) eof() bool {
	return r.pos >= len(r.in)
}

// escapeLen returns the length of the complete escape sequence at the
// start of b, or 0 if b ends before the sequence does or it is invalid.
func escapeLen(b []byte) int {
	if len(b) < 2 {
		return 0
	}
	switch b[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if len(b) < 6 {
			return 0
		}
		for _, h := range b[2:6] {
			if !isHexDigit(h) {
				return 0
			}
		}
		return 6
	}
	return 0
}

const hexDigits = "0123456789abcdef"

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
