package restx

import "dqx0.com/go/rawrest/internal/obs"

type Handler interface {
	ServeHTTP(ResponseWriter, *Request)
}

type HandlerFunc func(ResponseWriter, *Request)

func (f HandlerFunc) ServeHTTP(w ResponseWriter, r *Request) {
	f(w, r)
}

// Mux dispatches each request through Classify to the resource handlers,
// the static file server or the fixed 405 answer.
type Mux struct {
	Resources *Resources
	Static    *Static
	Logger    obs.Logger
}

func NewMux(res *Resources, static *Static) *Mux {
	return &Mux{Resources: res, Static: static}
}

func (mx *Mux) ServeHTTP(w ResponseWriter, r *Request) {
	m := Classify(r.Method, r.RequestURI)
	r.Pattern = m.Kind.String()

	if m.Kind.HasBody() {
		// Nothing is answered until the whole body has been read.
		p := NewPending(m)
		v, err := p.Accumulate(r.Body)
		if err != nil {
			obs.Or(mx.Logger).Logf(obs.Debug, "[req %s] %s: %v (%d bytes in %d fragments)", requestID(r), m, err, p.Len(), p.Fragments())
			writeError(w, 400, msgInvalidJSON)
			return
		}
		if m.Kind == RoutePostCollection {
			mx.Resources.Create(w, r, m, v)
		} else {
			mx.Resources.Update(w, r, m, v)
		}
		return
	}

	switch m.Kind {
	case RouteGetCollection:
		mx.Resources.List(w, r, m)
	case RouteDeleteItem:
		mx.Resources.Delete(w, r, m)
	case RouteStatic:
		if mx.Static == nil {
			writeText(w, 404, msgStaticNotFound)
			return
		}
		mx.Static.Serve(w, r, m)
	default:
		writeText(w, 405, msgNotAllowed)
	}
}
