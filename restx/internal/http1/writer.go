package http1

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
)

// WriteHead writes the status line, the header block in sorted key order,
// a trailing "Connection: close" and the blank line. No body bytes.
// hdr keys should be canonicalized by caller; any Connection entry is
// dropped since every connection carries exactly one exchange.
func WriteHead(bw *bufio.Writer, status int, hdr map[string][]string) error {
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, Reason(status)); err != nil {
		return err
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		if k == "Connection" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range hdr[k] {
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", k, sanitizeHeaderValue(v)); err != nil {
				return err
			}
		}
	}
	if _, err := bw.WriteString("Connection: close\r\n\r\n"); err != nil {
		return err
	}
	return nil
}

// WriteResponse writes a complete response with an in-memory body.
func WriteResponse(bw *bufio.Writer, status int, hdr map[string][]string, body []byte) error {
	if err := WriteHead(bw, status, hdr); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// Reason returns the reason phrase for the codes this server emits.
func Reason(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 413:
		return "Payload Too Large"
	case 431:
		return "Request Header Fields Too Large"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	default:
		return "Status " + fmt.Sprint(code)
	}
}

func sanitizeHeaderValue(v string) string {
	if v == "" {
		return v
	}
	// Remove CR/LF and other control chars except HTAB
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
