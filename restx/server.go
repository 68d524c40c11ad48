package restx

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dqx0.com/go/rawrest/internal/accesslog"
	"dqx0.com/go/rawrest/internal/obs"
	"dqx0.com/go/rawrest/restx/internal/http1"
)

const (
	MetricRequests        = "rawrest_server_requests_total"
	MetricRequestDuration = "rawrest_server_request_duration_ms"
)

// Server accepts connections and answers exactly one request on each.
type Server struct {
	Addr    string
	Handler Handler

	// ReadHeaderTimeout bounds reading the request line and headers;
	// ReadTimeout bounds reading the body after that. Zero means none.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	MaxHeaderBytes    int

	// MaxBodyBytes caps the declared Content-Length a handler will read.
	// Reading an oversized body fails with ErrBodyTooLarge, which the
	// resource routes answer as invalid input. Zero means no limit.
	MaxBodyBytes int64

	Logger    obs.Logger
	Meter     obs.Meter
	AccessLog accesslog.Sink

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
	closing   atomic.Bool
}

func (s *Server) ListenAndServe() error {
	if s.closing.Load() {
		return ErrServerClosed
	}
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on l until it fails or Shutdown is called, in which case
// ErrServerClosed is returned.
func (s *Server) Serve(l net.Listener) error {
	if !s.trackListener(l, true) {
		l.Close()
		return ErrServerClosed
	}
	defer s.trackListener(l, false)
	defer l.Close()

	for {
		c, err := l.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}
		if !s.trackConn(c, true) {
			c.Close()
			return ErrServerClosed
		}
		go s.serveConn(c)
	}
}

// Shutdown stops accepting and waits for in-flight connections to finish.
// When ctx ends first the remaining connections are closed and ctx's
// error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	var err error
	for l := range s.listeners {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Server) trackListener(l net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closing.Load() {
			return false
		}
		if s.listeners == nil {
			s.listeners = make(map[net.Listener]struct{})
		}
		s.listeners[l] = struct{}{}
		return true
	}
	delete(s.listeners, l)
	return true
}

func (s *Server) trackConn(c net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closing.Load() {
			return false
		}
		if s.conns == nil {
			s.conns = make(map[net.Conn]struct{})
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
		return true
	}
	delete(s.conns, c)
	return true
}

func (s *Server) logger() obs.Logger { return obs.Or(s.Logger) }

func (s *Server) meter() obs.Meter {
	if s.Meter == nil {
		return obs.NopMeter{}
	}
	return s.Meter
}

func (s *Server) accessLog() accesslog.Sink {
	if s.AccessLog == nil {
		return accesslog.Nop{}
	}
	return s.AccessLog
}

func (s *Server) serveConn(c net.Conn) {
	defer s.wg.Done()
	defer s.trackConn(c, false)
	defer c.Close()

	start := time.Now()
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)

	if s.ReadHeaderTimeout > 0 {
		_ = c.SetReadDeadline(start.Add(s.ReadHeaderTimeout))
	}
	rr := &http1.Reader{BR: br, MaxHeaderBytes: s.headerLimit(), MaxTotalHeaderBytes: 8 * s.headerLimit()}
	pr, err := rr.ReadRequest()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// peer connected and left without sending anything
			return
		}
		status := framingStatus(err)
		s.logger().Logf(obs.Debug, "%s: bad request: %v", c.RemoteAddr(), err)
		hdr := map[string][]string{
			"Content-Type":   {"text/plain"},
			"Content-Length": {strconv.Itoa(len(http1.Reason(status)))},
			"Date":           {start.UTC().Format(dateFormat)},
		}
		_ = http1.WriteResponse(bw, status, hdr, []byte(http1.Reason(status)))
		_ = bw.Flush()
		s.meter().Counter(MetricRequests, 1, obs.Label{Key: "route", Value: "invalid"}, obs.Label{Key: "status", Value: strconv.Itoa(status)})
		return
	}
	if s.ReadTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	} else {
		_ = c.SetReadDeadline(time.Time{})
	}

	id := uuid.NewString()
	r := &Request{
		Method:        pr.Method,
		RequestURI:    pr.RequestURI,
		Proto:         pr.Proto,
		Header:        Header(pr.Header),
		Body:          pr.Body,
		ContentLength: pr.ContentLength,
		RemoteAddr:    c.RemoteAddr().String(),
	}
	if s.MaxBodyBytes > 0 && pr.ContentLength > s.MaxBodyBytes {
		r.Body = tooLargeBody{}
	}
	r = WithContext(r, WithRequestID(context.Background(), id))

	w := newConnResponseWriter(bw, id)
	s.dispatch(w, r)

	if s.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	if err := w.finish(); err != nil {
		s.logger().Logf(obs.Debug, "[req %s] write response: %v", id, err)
	}
	s.observe(r, w, start)

	// Closing with unread input makes the kernel reset the connection,
	// which can destroy the response before the peer reads it.
	_ = c.SetReadDeadline(time.Now().Add(drainTimeout))
	_, _ = io.CopyN(io.Discard, pr.Body, maxDrainBytes)
}

const (
	maxDrainBytes = 256 << 10
	drainTimeout  = 500 * time.Millisecond
)

type tooLargeBody struct{}

func (tooLargeBody) Read([]byte) (int, error) { return 0, ErrBodyTooLarge }

// dispatch runs the handler, turning a panic into a 500 when nothing has
// been sent yet.
func (s *Server) dispatch(w *connResponseWriter, r *Request) {
	defer func() {
		if p := recover(); p != nil {
			s.logger().Logf(obs.Error, "[req %s] panic serving %s %s: %v\n%s", requestID(r), r.Method, r.RequestURI, p, debug.Stack())
			if !w.wroteHdr {
				writeText(w, 500, msgInternal)
			}
		}
	}()
	h := s.Handler
	if h == nil {
		h = HandlerFunc(func(w ResponseWriter, r *Request) {
			writeText(w, 405, msgNotAllowed)
		})
	}
	h.ServeHTTP(w, r)
}

func (s *Server) observe(r *Request, w *connResponseWriter, start time.Time) {
	dur := time.Since(start)
	route := r.Pattern
	if route == "" {
		route = "unknown"
	}
	status := strconv.Itoa(w.status)
	s.logger().Logf(obs.Info, "[req %s] %s %s -> %d (%s)", requestID(r), r.Method, r.RequestURI, w.status, dur.Round(time.Microsecond))
	s.meter().Counter(MetricRequests, 1, obs.Label{Key: "route", Value: route}, obs.Label{Key: "status", Value: status})
	s.meter().Histogram(MetricRequestDuration, float64(dur)/float64(time.Millisecond), obs.Label{Key: "route", Value: route})

	s.accessLog().Log(accesslog.Entry{
		RemoteAddr: r.RemoteAddr,
		Time:       start,
		Method:     r.Method,
		URI:        r.RequestURI,
		Proto:      r.Proto,
		Status:     w.status,
		Bytes:      w.written,
		Referer:    r.Header.Get("Referer"),
		UserAgent:  r.Header.Get("User-Agent"),
	})
}

func framingStatus(err error) int {
	var ne net.Error
	switch {
	case errors.Is(err, http1.ErrHeaderTooLarge):
		return 431
	case errors.As(err, &ne) && ne.Timeout():
		return 408
	default:
		return 400
	}
}

func (s *Server) headerLimit() int {
	if s.MaxHeaderBytes <= 0 {
		return 8 << 10
	}
	return s.MaxHeaderBytes
}
