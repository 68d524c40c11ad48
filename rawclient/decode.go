package rawclient

import (
	"io"
	"unicode/utf8"
)

// textWriter turns a byte stream into UTF-8 text for out. A multi-byte
// sequence cut by a read boundary is held until the rest arrives; bytes
// that can never form a valid sequence become U+FFFD.
type textWriter struct {
	out     io.Writer
	pending []byte
}

func (w *textWriter) Write(p []byte) (int, error) {
	buf := append(w.pending, p...)
	cut := incompleteTail(buf)
	w.pending = append([]byte(nil), buf[cut:]...)
	if cut == 0 {
		return len(p), nil
	}
	if _, err := io.WriteString(w.out, sanitize(buf[:cut])); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes whatever is still held. At end of stream a partial
// sequence is invalid and prints as U+FFFD.
func (w *textWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	s := sanitize(w.pending)
	w.pending = nil
	_, err := io.WriteString(w.out, s)
	return err
}

// incompleteTail returns the index where a trailing, possibly valid but
// unfinished sequence starts, or len(b) when there is none.
func incompleteTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return i
		}
		break
	}
	return len(b)
}

func sanitize(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}
