package rawclient

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

// fakeServer accepts connections, parses each request with fasthttp and
// answers with reply written in small pieces.
type fakeServer struct {
	ln   net.Listener
	mu   sync.Mutex
	reqs []string
}

func startFake(t *testing.T, ln net.Listener, reply string) *fakeServer {
	t.Helper()
	fs := &fakeServer{ln: ln}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go fs.handle(c, reply)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (fs *fakeServer) handle(c net.Conn, reply string) {
	defer c.Close()
	var req fasthttp.Request
	if err := req.Read(bufio.NewReader(c)); err != nil {
		return
	}
	fs.mu.Lock()
	fs.reqs = append(fs.reqs, string(req.Header.Method())+" "+string(req.RequestURI())+" "+string(req.Body()))
	fs.mu.Unlock()
	for i := 0; i < len(reply); i += 5 {
		end := min(i+5, len(reply))
		c.Write([]byte(reply[i:end]))
		time.Sleep(time.Millisecond)
	}
}

func (fs *fakeServer) requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.reqs...)
}

const fakeReply = "HTTP/1.1 201 Created\r\nContent-Type: application/json\r\nContent-Length: 37\r\nConnection: close\r\n\r\n{\"message\":\"Nuevo elemento añadido\"}"

func listenLocal(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func targetFor(t *testing.T, scheme string, ln net.Listener) Target {
	t.Helper()
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return Target{Scheme: scheme, Hostname: "127.0.0.1", Port: port}
}

func TestSession_PlainExchange(t *testing.T) {
	ln := listenLocal(t)
	fs := startFake(t, ln, fakeReply)

	var out bytes.Buffer
	s := &Session{Console: NewConsole(strings.NewReader(""), &out)}
	d := NewDescriptor(targetFor(t, "http", ln), "post", "/books", "", `{"id":1}`)
	if err := s.Run(context.Background(), d); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), fakeReply) {
		t.Fatalf("output lacks the raw reply:\n%s", out.String())
	}
	if got := fs.requests(); len(got) != 1 || got[0] != `POST /books {"id":1}` {
		t.Fatalf("server saw %q", got)
	}
}

func TestSession_ConnectionRefused(t *testing.T) {
	ln := listenLocal(t)
	tg := targetFor(t, "http", ln)
	ln.Close()

	var out bytes.Buffer
	s := &Session{Console: NewConsole(strings.NewReader(""), &out)}
	err := s.Run(context.Background(), NewDescriptor(tg, "GET", "/", "", ""))
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("err=%v", err)
	}
}

func TestSession_CancelClosesSocket(t *testing.T) {
	ln := listenLocal(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	t.Cleanup(func() { ln.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		s := &Session{Console: NewConsole(strings.NewReader(""), io.Discard)}
		errc <- s.Run(ctx, NewDescriptor(targetFor(t, "http", ln), "GET", "/", "", ""))
	}()
	var server net.Conn
	select {
	case server = <-accepted:
		defer server.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
	}
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session ignored cancellation")
	}
}

func TestSession_TLSSetsServerName(t *testing.T) {
	cert, pool := selfSigned(t, "localhost")
	names := make(chan string, 1)
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			names <- hello.ServerName
			return nil, nil
		},
	}
	ln := tls.NewListener(listenLocal(t), cfg)
	startFake(t, ln, fakeReply)

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	tg := Target{Scheme: "https", Hostname: "localhost", Port: port}
	tr := &Transport{
		NetDialer: &net.Dialer{Timeout: 2 * time.Second},
		TLSConfig: &tls.Config{RootCAs: pool},
	}
	var out bytes.Buffer
	s := &Session{Transport: tr, Console: NewConsole(strings.NewReader(""), &out)}
	if err := s.Run(context.Background(), NewDescriptor(tg, "GET", "/", "", "")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := <-names; got != "localhost" {
		t.Fatalf("ServerName=%q", got)
	}
	if !strings.Contains(out.String(), "añadido") {
		t.Fatalf("output=%q", out.String())
	}
	if tr.TLSConfig.ServerName != "" {
		t.Fatal("caller's TLS config was modified")
	}
}

func selfSigned(t *testing.T, host string) (tls.Certificate, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,

		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

func TestTarget_AddrDefaults(t *testing.T) {
	for tg, want := range map[Target]string{
		{Scheme: "http", Hostname: "a"}:             "a:80",
		{Scheme: "https", Hostname: "a"}:            "a:443",
		{Scheme: "https", Hostname: "a", Port: "1"}: "a:1",
	} {
		if tg.Addr() != want {
			t.Fatalf("%+v -> %s", tg, tg.Addr())
		}
	}
}
