// Package store keeps the resource collections as one JSON document on
// disk. The whole document is read and rewritten on every mutation; a
// single writer lock serializes load-modify-save so concurrent requests
// cannot lose each other's updates.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"dqx0.com/go/rawrest/internal/jsonx"
	"dqx0.com/go/rawrest/internal/obs"
)

// Document is the whole store: collection name to its ordered items.
// Collections and the members of stored objects keep the order they were
// first written in.
type Document struct {
	colls *jsonx.Object
}

func NewDocument() *Document {
	return &Document{colls: jsonx.NewObject()}
}

// Get returns the named collection as stored; callers that keep it past
// an Update must copy it.
func (d *Document) Get(name string) ([]any, bool) {
	v, ok := d.colls.Get(name)
	if !ok {
		return nil, false
	}
	items, _ := v.([]any)
	return items, true
}

// Put replaces or creates the named collection.
func (d *Document) Put(name string, items []any) {
	if d.colls == nil {
		d.colls = jsonx.NewObject()
	}
	d.colls.Set(name, items)
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if d.colls == nil {
		return []byte("{}"), nil
	}
	return d.colls.MarshalJSON()
}

func parseDocument(b []byte) (*Document, error) {
	v, err := jsonx.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if v == nil {
		// the file held a literal null
		return NewDocument(), nil
	}
	obj, ok := v.(*jsonx.Object)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T", ErrCorrupt, v)
	}
	for _, name := range obj.Keys() {
		switch c, _ := obj.Get(name); c.(type) {
		case []any, nil:
		default:
			return nil, fmt.Errorf("%w: collection %q is %T", ErrCorrupt, name, c)
		}
	}
	return &Document{colls: obj}, nil
}

var (
	ErrClosed  = errors.New("store: closed")
	ErrCorrupt = errors.New("store: data file is not a JSON object of arrays")
)

// Store owns the data file. The zero value is not usable; call Open.
type Store struct {
	path   string
	logger obs.Logger

	mu     sync.Mutex
	cache  *Document // nil when it must be reloaded from disk
	closed bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open prepares path as the backing document, creating it as {} when it
// does not exist yet.
func Open(path string, logger obs.Logger) (*Store, error) {
	s := &Store{path: path, logger: obs.Or(logger)}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(NewDocument()); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("store: stat %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Collection returns a copy of the named collection. ok is false when the
// collection has never been written.
func (s *Store) Collection(name string) (items []any, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	if s.cache == nil {
		doc, err := s.load()
		if err != nil {
			return nil, false, err
		}
		s.cache = doc
	}
	coll, ok := s.cache.Get(name)
	if !ok {
		return nil, false, nil
	}
	out := make([]any, len(coll))
	copy(out, coll)
	return out, true, nil
}

// Update loads the document fresh from disk, hands it to fn and persists
// the result. When fn returns an error nothing is written and that error
// is returned unchanged.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.save(doc); err != nil {
		s.cache = nil
		s.logger.Logf(obs.Error, "persist %s failed: %v", s.path, err)
		return fmt.Errorf("store: save: %w", err)
	}
	s.cache = doc
	return nil
}

func (s *Store) load() (*Document, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := NewDocument()
		if err := s.save(doc); err != nil {
			return nil, fmt.Errorf("store: recreate %s: %w", s.path, err)
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	return parseDocument(b)
}

// save rewrites the whole file with two-space indentation. It writes a
// sibling temp file and renames it over the target, carrying over the
// target's permission bits (0644 for a new file).
func (s *Store) save(doc *Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rawrest-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(s.fileMode()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

const defaultFileMode fs.FileMode = 0o644

func (s *Store) fileMode() fs.FileMode {
	if fi, err := os.Stat(s.path); err == nil {
		return fi.Mode().Perm()
	}
	return defaultFileMode
}

// Close stops the watcher, if any. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-s.done
	return err
}
