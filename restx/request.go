package restx

import (
	"context"
	"io"
)

// Request is one parsed request. RequestURI is the raw request-target
// exactly as it appeared on the request line; routing never decodes or
// normalizes it.
type Request struct {
	Method        string
	RequestURI    string
	Proto         string
	Header        Header
	Body          io.Reader
	ContentLength int64
	RemoteAddr    string
	// Pattern names the route that claimed the request. Set by Mux.
	Pattern string
	// ctx carries the server-generated request ID, the same value echoed
	// in the X-Request-Id response header.
	ctx context.Context
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}
