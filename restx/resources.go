package restx

import (
	"errors"
	"strconv"
	"unicode/utf16"

	"dqx0.com/go/rawrest/internal/jsonx"
	"dqx0.com/go/rawrest/internal/obs"
	"dqx0.com/go/rawrest/internal/store"
)

// Resources serves the collection routes from an owned Store.
type Resources struct {
	Store  *store.Store
	Logger obs.Logger
}

type createdBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	NewItem any    `json:"newItem"`
}

type updatedBody struct {
	Status      string `json:"status"`
	UpdatedItem any    `json:"updatedItem"`
}

type deletedBody struct {
	Status      string `json:"status"`
	DeletedItem any    `json:"deletedItem"`
}

func (rs *Resources) logger() obs.Logger { return obs.Or(rs.Logger) }

// List answers GET /{name}. An absent collection is not-found, never [].
func (rs *Resources) List(w ResponseWriter, r *Request, m Match) {
	items, ok, err := rs.Store.Collection(m.Collection)
	if err != nil {
		rs.logger().Logf(obs.Error, "[req %s] load store: %v", requestID(r), err)
		writeText(w, 500, msgInternal)
		return
	}
	if !ok {
		writeError(w, 404, msgCollectionNotFound)
		return
	}
	writeJSON(w, 200, items)
}

// Create answers POST /{name}: the parsed body is appended verbatim,
// creating the collection on first write. Any caller-supplied id is kept
// as sent.
func (rs *Resources) Create(w ResponseWriter, r *Request, m Match, item any) {
	err := rs.Store.Update(func(doc *store.Document) error {
		coll, _ := doc.Get(m.Collection)
		doc.Put(m.Collection, append(coll, item))
		return nil
	})
	if err != nil {
		rs.logger().Logf(obs.Error, "[req %s] append to %s: %v", requestID(r), m.Collection, err)
		writeError(w, 400, msgInvalidJSON)
		return
	}
	writeJSON(w, 201, createdBody{
		Status:  "created",
		Message: "Nuevo elemento añadido a " + m.Collection,
		NewItem: item,
	})
}

// Update answers PUT /{name}/{id}, laying the body over the element as
// described on mergeShallow.
func (rs *Resources) Update(w ResponseWriter, r *Request, m Match, patch any) {
	var merged any
	err := rs.Store.Update(func(doc *store.Document) error {
		coll, ok := doc.Get(m.Collection)
		if !ok {
			return errCollectionNotFound
		}
		i := indexByID(coll, m.ID)
		if i < 0 {
			return errItemNotFound
		}
		merged = mergeShallow(coll[i], patch)
		coll[i] = merged
		return nil
	})
	switch {
	case errors.Is(err, errCollectionNotFound):
		writeError(w, 404, msgCollectionNotFound)
	case errors.Is(err, errItemNotFound):
		writeError(w, 404, msgItemNotFound)
	case err != nil:
		rs.logger().Logf(obs.Error, "[req %s] update %s/%v: %v", requestID(r), m.Collection, m.ID, err)
		writeError(w, 400, msgInvalidJSON)
	default:
		writeJSON(w, 200, updatedBody{Status: "updated", UpdatedItem: merged})
	}
}

// Delete answers DELETE /{name}/{id}, removing the first matching element
// and keeping the order of the rest.
func (rs *Resources) Delete(w ResponseWriter, r *Request, m Match) {
	var removed any
	err := rs.Store.Update(func(doc *store.Document) error {
		coll, ok := doc.Get(m.Collection)
		if !ok {
			return errCollectionNotFound
		}
		i := indexByID(coll, m.ID)
		if i < 0 {
			return errItemNotFound
		}
		removed = coll[i]
		rest := make([]any, 0, len(coll)-1)
		rest = append(rest, coll[:i]...)
		doc.Put(m.Collection, append(rest, coll[i+1:]...))
		return nil
	})
	switch {
	case errors.Is(err, errCollectionNotFound):
		writeError(w, 404, msgCollectionNotFound)
	case errors.Is(err, errItemNotFound):
		writeError(w, 404, msgItemNotFound)
	case err != nil:
		rs.logger().Logf(obs.Error, "[req %s] delete %s/%v: %v", requestID(r), m.Collection, m.ID, err)
		writeText(w, 500, msgInternal)
	default:
		writeJSON(w, 200, deletedBody{Status: "deleted", DeletedItem: removed})
	}
}

// indexByID finds the first element whose "id" is a JSON number equal to
// id. String ids never match, even when their text is the same digits.
func indexByID(coll []any, id float64) int {
	for i, it := range coll {
		obj, ok := it.(*jsonx.Object)
		if !ok {
			continue
		}
		if v, ok := obj.Get("id"); ok {
			if n, ok := v.(float64); ok && n == id {
				return i
			}
		}
	}
	return -1
}

// mergeShallow returns a new object with base's members overlaid by
// patch's own enumerable properties, as an object spread would:
//
//   - an object patch contributes its members;
//   - an array patch contributes "0", "1", ... for its elements;
//   - a string patch contributes one member per UTF-16 code unit, with
//     unpaired surrogates replaced by U+FFFD;
//   - numbers, booleans and null contribute nothing.
//
// Index-like keys sort ahead of the rest when the result is encoded.
func mergeShallow(base, patch any) *jsonx.Object {
	out := jsonx.NewObject()
	if b, ok := base.(*jsonx.Object); ok {
		out = b.Clone()
	}
	switch p := patch.(type) {
	case *jsonx.Object:
		for _, k := range p.Keys() {
			v, _ := p.Get(k)
			out.Set(k, v)
		}
	case []any:
		for i, v := range p {
			out.Set(strconv.Itoa(i), v)
		}
	case string:
		for i, u := range utf16.Encode([]rune(p)) {
			out.Set(strconv.Itoa(i), string(rune(u)))
		}
	}
	return out
}
