package restx

import (
	"bytes"
	"fmt"
	"io"

	"dqx0.com/go/rawrest/internal/jsonx"
)

// Pending holds the body of one POST or PUT while it arrives. Fragments
// are appended in arrival order; Finalize parses the whole buffer once.
type Pending struct {
	Route     Match
	buf       bytes.Buffer
	fragments int
	size      int
	done      bool
}

func NewPending(m Match) *Pending {
	return &Pending{Route: m}
}

// Write appends one fragment. It fails once the state is finalized.
func (p *Pending) Write(frag []byte) (int, error) {
	if p.done {
		return 0, ErrFinalized
	}
	p.fragments++
	p.size += len(frag)
	return p.buf.Write(frag)
}

func (p *Pending) Fragments() int { return p.fragments }

// Len is the number of body bytes received, kept after the buffer is
// released.
func (p *Pending) Len() int { return p.size }

// Finalize parses the accumulated bytes as a single JSON value of any
// kind. Objects come back as *jsonx.Object so member order survives. The
// buffer is released either way; a second call returns
// ErrFinalized.
func (p *Pending) Finalize() (any, error) {
	if p.done {
		return nil, ErrFinalized
	}
	p.done = true
	raw := p.buf.Bytes()
	p.buf = bytes.Buffer{}

	v, err := jsonx.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return v, nil
}

// Accumulate drains body into p fragment by fragment and finalizes it.
// A body that ends early or exceeds the server's limit is reported as
// ErrInvalidJSON wrapping the read error.
func (p *Pending) Accumulate(body io.Reader) (any, error) {
	if p.done {
		return nil, ErrFinalized
	}
	if body != nil {
		buf := make([]byte, 4<<10)
		if _, err := io.CopyBuffer(onlyWriter{p}, onlyReader{body}, buf); err != nil {
			p.done = true
			p.buf = bytes.Buffer{}
			return nil, fmt.Errorf("%w: reading body: %w", ErrInvalidJSON, err)
		}
	}
	return p.Finalize()
}

// onlyWriter and onlyReader hide ReaderFrom/WriterTo so that CopyBuffer
// feeds p one read at a time.
type onlyWriter struct{ io.Writer }

type onlyReader struct{ io.Reader }
