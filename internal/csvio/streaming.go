package csvio

// streaming.go holds the io.Reader wrappers applied to raw CSV input before
// decoding:
//
//   - skipBOM drops a leading UTF-8 byte order mark (Excel on Windows adds one)
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - sizeLimiter fails with ErrFileTooLarge once a byte limit is crossed
//
// All of them stream; memory use does not grow with file size.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned when input exceeds the configured byte limit.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after the UTF-8 BOM, if r starts with one.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 sequences with '?' on the fly.
// A multi-byte rune split across two reads is carried over to the next one.
type utf8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes ready.
// Unless atEOF, an incomplete trailing rune is held back in pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// sizeLimiter wraps a reader and fails once more than limit bytes are read.
// A limit <= 0 disables the check.
type sizeLimiter struct {
	reader io.Reader
	limit  int64
	read   int64
}

func (l *sizeLimiter) Read(p []byte) (int, error) {
	n, err := l.reader.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, l.limit)
	}
	return n, err
}

// wrap applies the input transforms in order: size check on raw bytes, then
// BOM removal, then UTF-8 sanitizing.
func wrap(r io.Reader, limit int64) io.Reader {
	limited := &sizeLimiter{reader: r, limit: limit}
	return newUTF8Sanitizer(skipBOM(limited))
}
