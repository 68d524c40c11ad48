package rawclient

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Target is where one request is sent.
type Target struct {
	Scheme   string // "http" or "https"
	Hostname string
	Port     string
}

// TLS reports whether the session must be wrapped in TLS.
func (t Target) TLS() bool { return t.Scheme == "https" }

// Addr is the dial address, with the scheme's default port filled in.
func (t Target) Addr() string {
	port := t.Port
	if port == "" {
		if t.TLS() {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(t.Hostname, port)
}

// hostHeader is the Host field value: the bare hostname, with IPv6
// literals bracketed. The port is never included.
func (t Target) hostHeader() string {
	if strings.Contains(t.Hostname, ":") {
		return "[" + t.Hostname + "]"
	}
	return t.Hostname
}

func (t Target) String() string {
	return t.Scheme + "://" + t.Addr()
}

// ParseTarget reads a base URL as typed at the prompt. Input without an
// http:// or https:// prefix is taken as plain http.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return Target{Scheme: u.Scheme, Hostname: u.Hostname(), Port: u.Port()}, nil
}
