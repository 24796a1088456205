package streamjson

import (
	"strings"
)

// Decoder extracts top-level JSON objects from a stream by brace balance.
//
// Braces and quotes inside string literals are ignored, an escaped quote
// does not end a string, and text between objects is skipped. Object
// boundaries never depend on newlines, so values may span any number of
// chunks and contain raw newlines in their strings.
//
// The buffer grows without bound while an object stays open. Callers that
// read from untrusted producers should watch BufferLength and give up on
// the stream past a limit of their choosing.
type Decoder struct {
	opts options

	buf []byte
	// head is the first live byte of buf. Bytes before it are consumed and
	// dropped when the buffer is compacted at the end of Parse.
	head int
	// pos is the next byte to scan. Scanning state survives across Parse
	// calls, so every byte is examined exactly once.
	pos      int
	depth    int
	inString bool
	escaped  bool
	// start is the index of the '{' opening the current top-level object,
	// or -1 when depth is 0.
	start int
	// consumed counts bytes dropped from the front of the stream, so
	// consumed+i is the stream offset of buf[i].
	consumed int64
}

var _ ChunkDecoder = (*Decoder)(nil)

// NewDecoder creates a brace-framing decoder.
func NewDecoder(opts ...Option) *Decoder {
	return &Decoder{
		opts:  buildOptions(opts),
		buf:   make([]byte, 0, 1024),
		start: -1,
	}
}

// Parse appends chunk and returns the objects it completes, in the order
// their closing braces appear. Brace-balanced text that is not valid JSON
// is dropped with a warning and scanning continues after it.
func (d *Decoder) Parse(chunk string) []DecodedValue {
	if chunk == "" {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var out []DecodedValue
	for ; d.pos < len(d.buf); d.pos++ {
		c := d.buf[d.pos]
		switch {
		case d.escaped:
			d.escaped = false
		case d.inString:
			switch c {
			case '\\':
				d.escaped = true
			case '"':
				d.inString = false
			}
		case c == '"':
			d.inString = true
		case c == '{':
			if d.depth == 0 {
				d.start = d.pos
			}
			d.depth++
		case c == '}':
			if d.depth == 0 {
				// Stray closer outside any object.
				continue
			}
			d.depth--
			if d.depth > 0 {
				continue
			}
			end := d.pos + 1
			if v, ok := d.opts.decode(d.buf[d.start:end], d.consumed+int64(d.start)); ok {
				out = append(out, v)
			}
			d.head = end
			d.start = -1
		}
	}

	d.compact()
	return out
}

// compact drops consumed bytes and, between objects, leading whitespace.
func (d *Decoder) compact() {
	if d.depth == 0 && d.start < 0 && !d.inString {
		for d.head < len(d.buf) && isSpace(d.buf[d.head]) {
			d.head++
		}
	}
	if d.head == 0 {
		return
	}

	n := copy(d.buf, d.buf[d.head:])
	d.buf = d.buf[:n]
	d.pos -= d.head
	if d.start >= 0 {
		d.start -= d.head
	}
	d.consumed += int64(d.head)
	d.head = 0
}

// Flush returns the trimmed leftover text and resets the decoder.
// Call it once the stream has ended; leftover text usually means the
// producer was cut off mid-object or wrote something that is not JSON.
func (d *Decoder) Flush() (string, bool) {
	rest := strings.TrimSpace(string(d.buf))
	d.Reset()
	return rest, rest != ""
}

// FlushPartial flushes and repairs the leftover text. Returns nil when
// nothing was buffered.
func (d *Decoder) FlushPartial() *Trailing {
	rest, ok := d.Flush()
	if !ok {
		return nil
	}
	return newTrailing(rest, false)
}

// Reset discards buffered data, including any partial object.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.head = 0
	d.pos = 0
	d.depth = 0
	d.inString = false
	d.escaped = false
	d.start = -1
	d.consumed = 0
}

// HasPartialObject reports whether an object has been opened but not closed.
func (d *Decoder) HasPartialObject() bool {
	return d.depth > 0 || d.start >= 0
}

// BufferLength returns the number of buffered bytes.
func (d *Decoder) BufferLength() int {
	return len(d.buf)
}

// BraceDepth returns the current nesting depth of the open object.
func (d *Decoder) BraceDepth() int {
	return d.depth
}

// Offset returns the stream offset of the first buffered byte.
func (d *Decoder) Offset() int64 {
	return d.consumed
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
