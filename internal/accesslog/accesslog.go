// Package accesslog appends one Apache "combined" line per served request.
package accesslog

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

const clfTime = "02/Jan/2006:15:04:05 -0700"

// Entry describes one finished request.
type Entry struct {
	RemoteAddr string
	Time       time.Time
	Method     string
	URI        string
	Proto      string
	Status     int
	Bytes      int64 // body bytes sent; <0 means unknown
	Referer    string
	UserAgent  string
}

// Sink receives access log entries.
type Sink interface {
	Log(e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Log(Entry) {}

// Writer formats entries onto an io.Writer. It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func New(w io.Writer) *Writer { return &Writer{w: w} }

// OpenFile opens path for appending, creating it when missing.
func OpenFile(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("accesslog: open %s: %w", path, err)
	}
	return &Writer{w: f, c: f}, nil
}

func (l *Writer) Log(e Entry) {
	line := Format(e)
	l.mu.Lock()
	_, _ = io.WriteString(l.w, line)
	l.mu.Unlock()
}

func (l *Writer) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

// Format renders e as a combined log line, newline included.
func Format(e Entry) string {
	host := e.RemoteAddr
	if h, _, err := net.SplitHostPort(e.RemoteAddr); err == nil {
		host = h
	}
	size := "-"
	if e.Bytes >= 0 {
		size = strconv.FormatInt(e.Bytes, 10)
	}
	return fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %s %q %q\n",
		dash(host), e.Time.Format(clfTime), e.Method, e.URI, e.Proto,
		e.Status, size, dash(e.Referer), dash(e.UserAgent))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
