package restx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"dqx0.com/go/rawrest/restx/internal/http1"
)

type ResponseWriter interface {
	Header() Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// connResponseWriter writes the head on the first WriteHeader or Write.
// There is no chunked fallback: handlers set Content-Length, and the
// connection closing marks the end of the body.
type connResponseWriter struct {
	bw       *bufio.Writer
	hdr      Header
	status   int
	wroteHdr bool
	written  int64
	err      error
	now      func() time.Time
}

func newConnResponseWriter(bw *bufio.Writer, requestID string) *connResponseWriter {
	w := &connResponseWriter{bw: bw, hdr: Header{}, now: time.Now}
	w.hdr.Set("X-Request-Id", requestID)
	return w
}

func (w *connResponseWriter) Header() Header {
	return w.hdr
}

func (w *connResponseWriter) WriteHeader(status int) {
	if w.wroteHdr {
		return
	}
	if status == 0 {
		status = 200
	}
	w.status = status
	w.wroteHdr = true
	if w.hdr.Get("Date") == "" {
		w.hdr.Set("Date", w.now().UTC().Format(dateFormat))
	}
	w.hdr.Del("Connection")
	w.err = http1.WriteHead(w.bw, status, w.hdr)
}

func (w *connResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHdr {
		w.WriteHeader(200)
	}
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.bw.Write(p)
	w.written += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

// finish flushes whatever was written; a handler that wrote nothing
// yields an empty 200.
func (w *connResponseWriter) finish() error {
	if !w.wroteHdr {
		w.hdr.Set("Content-Length", "0")
		w.WriteHeader(200)
	}
	if w.err != nil {
		return w.err
	}
	return w.bw.Flush()
}

const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// writeBody sends a complete in-memory payload with its exact length.
func writeBody(w ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeText(w ResponseWriter, status int, msg string) {
	writeBody(w, status, "text/plain", []byte(msg))
}

// writeJSON encodes v compactly without HTML escaping, so "<" and "&"
// reach the client as typed.
func writeJSON(w ResponseWriter, status int, v any) {
	b, err := marshalJSON(v)
	if err != nil {
		writeText(w, 500, msgInternal)
		return
	}
	writeBody(w, status, "application/json", b)
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
