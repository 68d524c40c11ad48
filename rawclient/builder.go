package rawclient

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// UserAgent is sent with every request.
const UserAgent = "mi-cliente"

// HeaderField is one user-supplied header, kept in input order.
type HeaderField struct {
	Key   string
	Value string
}

// Descriptor is everything needed to write one raw request. It is not
// modified once Serialize has been called.
type Descriptor struct {
	Target  Target
	Method  string
	Path    string
	Headers []HeaderField
	Body    string
}

// NewDescriptor normalizes the prompt answers: the method is upper-cased
// but otherwise sent as typed, an empty path becomes "/" and the header
// list is split with ParseHeaderList.
func NewDescriptor(t Target, method, path, headerList, body string) *Descriptor {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	return &Descriptor{
		Target:  t,
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		Path:    path,
		Headers: ParseHeaderList(headerList),
		Body:    body,
	}
}

// ParseHeaderList splits "k:v, k2:v2" on commas and each token on its
// first colon. Tokens whose key or value is empty after trimming are
// dropped without notice; duplicates are all kept.
func ParseHeaderList(s string) []HeaderField {
	var out []HeaderField
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, ok := strings.Cut(tok, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out = append(out, HeaderField{Key: k, Value: v})
	}
	return out
}

// SendsBody reports whether the body goes on the wire: only for POST and
// PUT, and only when it is not empty.
func (d *Descriptor) SendsBody() bool {
	return d.Body != "" && (d.Method == "POST" || d.Method == "PUT")
}

// Serialize renders the request text. Host, User-Agent and Connection
// always come first; user headers follow in input order, then
// Content-Length when a body is sent, then one blank line and the body.
func (d *Descriptor) Serialize() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", d.Method, d.Path)
	fmt.Fprintf(&b, "Host: %s\r\n", d.Target.hostHeader())
	fmt.Fprintf(&b, "User-Agent: %s\r\n", UserAgent)
	b.WriteString("Connection: close\r\n")
	for _, h := range d.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Key, h.Value)
	}
	if d.SendsBody() {
		b.WriteString("Content-Length: " + strconv.Itoa(len(d.Body)) + "\r\n\r\n")
		b.WriteString(d.Body)
		return b.Bytes()
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// Prompts, in the order they are asked.
const (
	PromptURL     = "Introduce la URL base (ej: https://test1234.free.beeceptor.com): "
	PromptMethod  = "Método HTTP (GET, POST, PUT, DELETE, HEAD): "
	PromptPath    = "Ruta (ej. /cats): "
	PromptHeaders = "Headers (clave:valor separados por coma, ej. Auth:abc,Type:json): "
	PromptBody    = "Cuerpo (solo se usará si es POST o PUT): "
)

// Build asks the five questions of one cycle. The URL is validated as
// soon as it is read, so a bad URL ends the cycle before the other
// prompts. End of input at any prompt is returned as io.EOF, and
// cancellation of ctx as ctx's error.
func Build(ctx context.Context, con *Console) (*Descriptor, error) {
	rawURL, err := con.Ask(ctx, PromptURL)
	if err != nil {
		return nil, err
	}
	t, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	var answers [4]string
	for i, q := range []string{PromptMethod, PromptPath, PromptHeaders, PromptBody} {
		if answers[i], err = con.Ask(ctx, q); err != nil {
			return nil, err
		}
	}
	return NewDescriptor(t, answers[0], answers[1], answers[2], answers[3]), nil
}
