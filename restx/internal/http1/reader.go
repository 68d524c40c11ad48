package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

var (
	ErrRequestLine      = errors.New("http1: malformed request line")
	ErrHeaderTooLarge   = errors.New("http1: header too large")
	ErrBadContentLength = errors.New("http1: invalid Content-Length")
)

// ParsedRequest is a minimal representation parsed from the wire.
type ParsedRequest struct {
	Method        string
	RequestURI    string
	Proto         string
	Header        map[string][]string
	ContentLength int64
	// Body yields exactly ContentLength bytes. A peer that closes early
	// surfaces as io.ErrUnexpectedEOF rather than a clean io.EOF.
	Body io.Reader
}

type Reader struct {
	BR *bufio.Reader
	// MaxHeaderBytes limits any single line of the head; 0 means no limit.
	MaxHeaderBytes int
	// MaxTotalHeaderBytes limits the header block as a whole; 0 means no limit.
	MaxTotalHeaderBytes int
}

// ReadRequest reads the request line and header block. The body is framed
// by Content-Length only; without it the body is empty. Connections carry
// one request, so no attempt is made to find the next message.
func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, ErrRequestLine
	}
	method, uri, proto := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, ErrRequestLine
	}
	hdr, err := r.readHeaders()
	if err != nil {
		return nil, err
	}

	var cl int64
	if v := getHeader(hdr, "Content-Length"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return nil, ErrBadContentLength
		}
		cl = n
	}
	return &ParsedRequest{
		Method:        method,
		RequestURI:    uri,
		Proto:         proto,
		Header:        hdr,
		ContentLength: cl,
		Body:          &framedBody{br: r.BR, remain: cl},
	}, nil
}

// readHeaders splits each line on its first colon. Lines without a colon or
// with an empty name are skipped rather than rejected.
func (r *Reader) readHeaders() (map[string][]string, error) {
	h := make(map[string][]string)
	total := 0
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		total += len(line) + 2
		if r.MaxTotalHeaderBytes > 0 && total > r.MaxTotalHeaderBytes {
			return nil, ErrHeaderTooLarge
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		if k == "" {
			continue
		}
		addHeader(h, k, strings.TrimSpace(line[i+1:]))
	}
	return h, nil
}

func (r *Reader) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := r.BR.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if r.MaxHeaderBytes > 0 && sb.Len() > r.MaxHeaderBytes {
			return "", ErrHeaderTooLarge
		}
	}
	return sb.String(), nil
}

type framedBody struct {
	br     *bufio.Reader
	remain int64
}

func (b *framedBody) Read(p []byte) (int, error) {
	if b.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remain {
		p = p[:b.remain]
	}
	n, err := b.br.Read(p)
	b.remain -= int64(n)
	if err == io.EOF {
		if b.remain > 0 {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
	}
	return n, err
}

func addHeader(h map[string][]string, k, v string) {
	hk := CanonicalHeaderKey(k)
	h[hk] = append(h[hk], v)
}

func getHeader(h map[string][]string, k string) string {
	hk := CanonicalHeaderKey(k)
	if vv, ok := h[hk]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// CanonicalHeaderKey upper-cases the first letter and every letter after a
// hyphen, lower-casing the rest ("content-length" -> "Content-Length").
func CanonicalHeaderKey(s string) string {
	b := []byte(strings.ToLower(s))
	upper := true
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			if upper {
				b[i] = byte(c - 'a' + 'A')
			}
			upper = false
			continue
		}
		upper = c == '-'
	}
	return string(b)
}
