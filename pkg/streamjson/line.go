package streamjson

import (
	"bytes"
	"strings"
)

// LineDecoder decodes one JSON value per newline-terminated line.
//
// It is cheaper than Decoder and accepts any JSON value per line, not only
// objects, but a producer that writes a raw newline inside a value breaks
// it: both halves are dropped as malformed. Blank lines are skipped.
type LineDecoder struct {
	opts     options
	buf      []byte
	consumed int64
}

var _ ChunkDecoder = (*LineDecoder)(nil)

// NewLineDecoder creates a line-framing decoder.
func NewLineDecoder(opts ...Option) *LineDecoder {
	return &LineDecoder{
		opts: buildOptions(opts),
		buf:  make([]byte, 0, 1024),
	}
}

// Parse appends chunk and returns the values of every line it completes.
// The last, unterminated fragment is held back. Lines that are not valid
// JSON are dropped with a warning.
func (d *LineDecoder) Parse(chunk string) []DecodedValue {
	if chunk == "" {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var out []DecodedValue
	head := 0
	for {
		i := bytes.IndexByte(d.buf[head:], '\n')
		if i < 0 {
			break
		}
		line := d.buf[head : head+i]
		lead := len(line) - len(bytes.TrimLeft(line, " \t\r"))
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			if v, ok := d.opts.decode(line, d.consumed+int64(head+lead)); ok {
				out = append(out, v)
			}
		}
		head += i + 1
	}

	if head > 0 {
		n := copy(d.buf, d.buf[head:])
		d.buf = d.buf[:n]
		d.consumed += int64(head)
	}
	return out
}

// Flush returns the trimmed unterminated last line and resets the decoder.
// A producer that omits the final newline leaves its last value here.
func (d *LineDecoder) Flush() (string, bool) {
	rest := strings.TrimSpace(string(d.buf))
	d.Reset()
	return rest, rest != ""
}

// FlushPartial flushes and repairs the leftover line. A raw newline can
// never be part of a line-framed value, so repair treats one as truncation.
func (d *LineDecoder) FlushPartial() *Trailing {
	rest, ok := d.Flush()
	if !ok {
		return nil
	}
	return newTrailing(rest, true)
}

// Reset discards buffered data.
func (d *LineDecoder) Reset() {
	d.buf = d.buf[:0]
	d.consumed = 0
}

// HasPartialObject reports whether a non-blank line fragment is buffered.
func (d *LineDecoder) HasPartialObject() bool {
	return len(bytes.TrimSpace(d.buf)) > 0
}

// BufferLength returns the number of buffered bytes.
func (d *LineDecoder) BufferLength() int {
	return len(d.buf)
}
