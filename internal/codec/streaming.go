package codec

// streaming.go cleans CSV input on the fly so archives saved by spreadsheet
// tools decode the same as the ones we write:
//
//   - bomReader drops a leading UTF-8 byte order mark
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader tracks bytes consumed for progress reporting

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips the UTF-8 BOM if the stream starts with one.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, buf)
		switch {
		case err == io.ErrUnexpectedEOF || err == io.EOF:
			// short stream; whatever we got is data
		case err != nil:
			return 0, err
		}
		if !bytes.Equal(buf[:n], utf8BOM) {
			b.head = buf[:n]
		}
	}
	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer rewrites invalid UTF-8 in place. Multi-byte sequences split
// across reads are carried over to the next call.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		// not enough room to hold a carried-over rune plus progress
		buf := make([]byte, utf8.UTFMax)
		n, err := s.Read(buf)
		copy(p, buf[:n])
		if n > len(p) {
			s.pending = append(buf[len(p):n:n], s.pending...)
			n = len(p)
		}
		return n, err
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if !atEOF {
		if tail := partialRuneLen(data); tail > 0 {
			s.pending = append(s.pending, data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}
	if utf8.Valid(data) {
		return len(data)
	}

	w := 0
	for r := 0; r < len(data); {
		c, size := utf8.DecodeRune(data[r:])
		if c == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// partialRuneLen returns how many trailing bytes of data start a multi-byte
// sequence that has not been completed yet.
func partialRuneLen(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue
		}
		if b < 0xC0 {
			return 0
		}
		if i < expectedRuneLen(b) {
			return i
		}
		return 0
	}
	return 0
}

func expectedRuneLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader counts bytes read from the wrapped reader.
type CountingReader struct {
	r     io.Reader
	n     int64
	total int64
}

// NewCountingReader wraps r. total may be 0 when the size is unknown.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *CountingReader) BytesRead() int64 { return c.n }

// Fraction returns the share of total consumed, in [0, 1]. It is 0 when the
// total is unknown.
func (c *CountingReader) Fraction() float64 {
	if c.total <= 0 {
		return 0
	}
	return min(float64(c.n)/float64(c.total), 1)
}

// wrapInput strips the BOM first, then sanitizes, then counts.
func wrapInput(r io.Reader, total int64) *CountingReader {
	return NewCountingReader(&utf8Sanitizer{r: &bomReader{r: r}}, total)
}
