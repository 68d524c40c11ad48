package rawclient

import (
	"bufio"
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/valyala/fasthttp"
)

var testTarget = Target{Scheme: "http", Hostname: "example.com"}

func TestSerialize_PostWithBody(t *testing.T) {
	d := NewDescriptor(testTarget, "post", "/x", "A:b", `{"q":1}`)
	want := "POST /x HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: mi-cliente\r\n" +
		"Connection: close\r\n" +
		"A: b\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		`{"q":1}`
	if got := string(d.Serialize()); got != want {
		t.Fatalf("got\n%q\nwant\n%q", got, want)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	d := NewDescriptor(testTarget, "POST", "/x", "A:b", `{"q":1}`)
	var req fasthttp.Request
	if err := req.Read(bufio.NewReader(bytes.NewReader(d.Serialize()))); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if string(req.Header.Method()) != "POST" || string(req.RequestURI()) != "/x" {
		t.Fatalf("line: %s %s", req.Header.Method(), req.RequestURI())
	}
	if string(req.Host()) != "example.com" || string(req.Header.UserAgent()) != "mi-cliente" {
		t.Fatalf("host=%s ua=%s", req.Host(), req.Header.UserAgent())
	}
	if !req.ConnectionClose() {
		t.Fatal("Connection: close missing")
	}
	if string(req.Header.Peek("A")) != "b" {
		t.Fatalf("A=%q", req.Header.Peek("A"))
	}
	if req.Header.ContentLength() != 7 || string(req.Body()) != `{"q":1}` {
		t.Fatalf("cl=%d body=%q", req.Header.ContentLength(), req.Body())
	}
}

func TestSerialize_ContentLengthCountsBytes(t *testing.T) {
	d := NewDescriptor(testTarget, "PUT", "/a/1", "", `{"n":"ñú€"}`)
	if !bytes.Contains(d.Serialize(), []byte("Content-Length: 15\r\n\r\n")) {
		t.Fatalf("%q", d.Serialize())
	}
}

func TestSerialize_NoBodyOutsidePostPut(t *testing.T) {
	for _, tc := range []struct{ method, body string }{
		{"GET", "ignored"},
		{"DELETE", "ignored"},
		{"POST", ""},
		{"PUT", ""},
	} {
		raw := string(NewDescriptor(testTarget, tc.method, "/a", "", tc.body).Serialize())
		if strings.Contains(raw, "Content-Length") || !strings.HasSuffix(raw, "Connection: close\r\n\r\n") {
			t.Fatalf("%s %q -> %q", tc.method, tc.body, raw)
		}
	}
}

func TestNewDescriptor_Normalizes(t *testing.T) {
	d := NewDescriptor(testTarget, "patch", "", "", "")
	if d.Method != "PATCH" || d.Path != "/" {
		t.Fatalf("%+v", d)
	}
	if got := NewDescriptor(testTarget, "brew", "/pot", "", "").Method; got != "BREW" {
		t.Fatalf("method=%q", got)
	}
}

func TestParseHeaderList(t *testing.T) {
	got := ParseHeaderList(" Auth:abc , Type: json,,novalue:,:nokey,plain, X-Time: 12:30:00 ,Auth:again")
	want := []HeaderField{
		{"Auth", "abc"},
		{"Type", "json"},
		{"X-Time", "12:30:00"},
		{"Auth", "again"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
	if ParseHeaderList("") != nil {
		t.Fatal("empty list should give no headers")
	}
}

func TestSerialize_FixedHeadersFirst(t *testing.T) {
	raw := string(NewDescriptor(testTarget, "GET", "/", "Host:evil, User-Agent:other", "").Serialize())
	lines := strings.Split(raw, "\r\n")
	want := []string{"GET / HTTP/1.1", "Host: example.com", "User-Agent: mi-cliente", "Connection: close", "Host: evil", "User-Agent: other", "", ""}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines=%q", lines)
	}
}

func TestSerialize_HostBracketsIPv6(t *testing.T) {
	for in, want := range map[string]string{
		"http://[::1]:8080":  "Host: [::1]\r\n",
		"[fe80::1%25eth0]":   "Host: [fe80::1%eth0]\r\n",
		"https://127.0.0.1/": "Host: 127.0.0.1\r\n",
	} {
		tg, err := ParseTarget(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		raw := string(NewDescriptor(tg, "GET", "/", "", "").Serialize())
		if !strings.Contains(raw, "\r\n"+want) {
			t.Errorf("%s: %q", in, raw)
		}
	}
}

func TestBuild_PromptOrder(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("localhost:9\npost\n/books\nA:b\n{\"id\":1}\n")
	d, err := Build(context.Background(), NewConsole(in, &out))
	if err != nil {
		t.Fatal(err)
	}
	if d.Target.Addr() != "localhost:9" || d.Method != "POST" || d.Path != "/books" || d.Body != `{"id":1}` {
		t.Fatalf("%+v", d)
	}
	want := PromptURL + PromptMethod + PromptPath + PromptHeaders + PromptBody
	if out.String() != want {
		t.Fatalf("prompts=%q", out.String())
	}
}

func TestBuild_BadURLStopsBeforeOtherPrompts(t *testing.T) {
	var out bytes.Buffer
	_, err := Build(context.Background(), NewConsole(strings.NewReader("http://\nGET\n"), &out))
	if err == nil {
		t.Fatal("expected error")
	}
	if out.String() != PromptURL {
		t.Fatalf("prompts=%q", out.String())
	}
}
