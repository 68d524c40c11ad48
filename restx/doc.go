// Package restx is a small HTTP/1.1 resource server whose framing is
// written by hand on top of net.Conn. Each connection carries exactly one
// request and is closed after the response.
//
// Routing is an ordered table evaluated first-match-wins:
//
//	GET    /{name}       list a collection
//	POST   /{name}       append the JSON body to a collection
//	PUT    /{name}/{id}  shallow-merge the JSON body into an item
//	DELETE /{name}/{id}  remove an item
//	GET    anything else static file under the document root
//
// Anything else is answered with 405. Collections live in a JSON
// document owned by an internal/store.Store.
//
// Quick start:
//
//	st, _ := store.Open("data.json", nil)
//	s := &restx.Server{
//	    Addr:    ":8080",
//	    Handler: restx.NewMux(&restx.Resources{Store: st}, &restx.Static{Root: ".", Index: "index.html"}),
//	}
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
package restx
