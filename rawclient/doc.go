// Package rawclient is an interactive HTTP/1.1 client that assembles the
// request text by hand, sends it once over TCP or TLS and prints the raw
// reply as it arrives. Nothing in the reply is parsed.
//
// One run is a sequence of cycles. Each cycle prompts for a target, a
// method, a path, a header list and a body, then opens a fresh
// connection. After the server closes it the user is asked whether to
// send another request.
package rawclient
