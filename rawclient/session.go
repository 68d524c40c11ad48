package rawclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
)

// Transport opens the connection for one session. The zero value dials
// with no timeout and verifies certificates against the system roots.
type Transport struct {
	NetDialer *net.Dialer
	// TLSConfig is cloned per dial; ServerName is always set to the
	// target's host name.
	TLSConfig *tls.Config
}

// Dial connects to t, wrapping the socket in TLS for https.
func (tr *Transport) Dial(ctx context.Context, t Target) (net.Conn, error) {
	d := tr.NetDialer
	if d == nil {
		d = &net.Dialer{}
	}
	if !t.TLS() {
		return d.DialContext(ctx, "tcp", t.Addr())
	}
	var cfg *tls.Config
	if tr.TLSConfig != nil {
		cfg = tr.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	cfg.ServerName = t.Hostname
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{"http/1.1"}
	}
	td := tls.Dialer{NetDialer: d, Config: cfg}
	return td.DialContext(ctx, "tcp", t.Addr())
}

// Session is one connection carrying one request. It is used once.
type Session struct {
	Transport *Transport
	Console   *Console
}

// Run connects, writes the serialized request exactly once and copies
// the reply to the console as text until the server closes the
// connection. A nil error means a graceful close. Cancelling ctx closes
// the socket and returns ctx's error.
func (s *Session) Run(ctx context.Context, d *Descriptor) error {
	tr := s.Transport
	if tr == nil {
		tr = &Transport{}
	}
	conn, err := tr.Dial(ctx, d.Target)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.Console.Successf("Conectado a %s. Enviando solicitud...", d.Target)
	if _, err := conn.Write(d.Serialize()); err != nil {
		return s.failure(ctx, err)
	}

	out := &textWriter{out: s.Console.Out()}
	buf := make([]byte, 4<<10)
	announced := false
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if !announced {
				s.Console.Infof("Respuesta del servidor:")
				announced = true
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == nil {
			continue
		}
		ferr := out.Flush()
		if errors.Is(err, io.EOF) {
			if announced {
				fmt.Fprintln(s.Console.Out())
			}
			return ferr
		}
		return s.failure(ctx, err)
	}
}

func (s *Session) failure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
