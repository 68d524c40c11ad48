package restx

import (
	"fmt"
	"regexp"
	"strconv"
)

// RouteKind identifies which handler a request is dispatched to.
type RouteKind int

const (
	RouteUnmatched RouteKind = iota
	RouteGetCollection
	RoutePostCollection
	RoutePutItem
	RouteDeleteItem
	RouteStatic
)

func (k RouteKind) String() string {
	switch k {
	case RouteGetCollection:
		return "get-collection"
	case RoutePostCollection:
		return "post-collection"
	case RoutePutItem:
		return "put-item"
	case RouteDeleteItem:
		return "delete-item"
	case RouteStatic:
		return "static"
	default:
		return "unmatched"
	}
}

// HasBody reports whether requests on this route carry a JSON body.
func (k RouteKind) HasBody() bool {
	return k == RoutePostCollection || k == RoutePutItem
}

var (
	collectionPattern = regexp.MustCompile(`^/([A-Za-z0-9]+)$`)
	itemPattern       = regexp.MustCompile(`^/([A-Za-z0-9]+)/(\d+)$`)
)

// Match is the outcome of classifying one request line.
type Match struct {
	Kind       RouteKind
	Collection string
	// ID is the item path segment compared as a JSON number, so that
	// "/books/007" addresses the element whose id is 7.
	ID float64
	// Path is the raw request-target, used by static lookups.
	Path string
}

func (m Match) String() string {
	if m.Kind == RoutePutItem || m.Kind == RouteDeleteItem {
		return fmt.Sprintf("%s /%s/%v", m.Kind, m.Collection, m.ID)
	}
	if m.Collection != "" {
		return fmt.Sprintf("%s /%s", m.Kind, m.Collection)
	}
	return fmt.Sprintf("%s %s", m.Kind, m.Path)
}

// Route is one row of the routing table. Method is compared exactly;
// an empty Method matches any method.
type Route struct {
	Kind   RouteKind
	Method string
	match  func(uri string) (Match, bool)
}

// Routes is the routing table in priority order. The first row whose
// method and pattern both match claims the request, so collection routes
// always shadow static serving.
var Routes = []Route{
	{Kind: RouteGetCollection, Method: "GET", match: matchCollection},
	{Kind: RoutePostCollection, Method: "POST", match: matchCollection},
	{Kind: RoutePutItem, Method: "PUT", match: matchItem},
	{Kind: RouteDeleteItem, Method: "DELETE", match: matchItem},
	{Kind: RouteStatic, Method: "GET", match: matchAny},
}

// Classify runs method and the raw request-target through Routes. The
// target is never decoded, trimmed or stripped of its query.
func Classify(method, uri string) Match {
	for _, rt := range Routes {
		if rt.Method != "" && rt.Method != method {
			continue
		}
		if m, ok := rt.match(uri); ok {
			m.Kind = rt.Kind
			m.Path = uri
			return m
		}
	}
	return Match{Kind: RouteUnmatched, Path: uri}
}

func matchCollection(uri string) (Match, bool) {
	sm := collectionPattern.FindStringSubmatch(uri)
	if sm == nil {
		return Match{}, false
	}
	return Match{Collection: sm[1]}, true
}

func matchItem(uri string) (Match, bool) {
	sm := itemPattern.FindStringSubmatch(uri)
	if sm == nil {
		return Match{}, false
	}
	id, err := strconv.ParseFloat(sm[2], 64)
	if err != nil {
		return Match{}, false
	}
	return Match{Collection: sm[1], ID: id}, true
}

func matchAny(string) (Match, bool) { return Match{}, true }
