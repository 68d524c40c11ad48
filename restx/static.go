package restx

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".json": "application/json",
	".png":  "image/png",
	".mp3":  "audio/mpeg",
	".js":   "application/javascript",
	".css":  "text/css",
}

// ContentType maps a file name to the type served for it by extension.
// Unknown extensions are served as application/octet-stream.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Static serves files below Root. The raw request-target is joined to
// Root as-is; "/" is served as Index.
type Static struct {
	Root  string
	Index string
}

// resolve returns the file path for target, or false when it would land
// outside Root.
func (s *Static) resolve(target string) (string, bool) {
	name := target
	if target == "/" {
		name = s.Index
		if name == "" {
			name = "index.html"
		}
	}
	root := s.Root
	if root == "" {
		root = "."
	}
	root = filepath.Clean(root)
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Serve streams the file for the request-target byte for byte. Every
// failure (missing, directory, permission, escape) is the same 404.
func (s *Static) Serve(w ResponseWriter, r *Request, m Match) {
	full, ok := s.resolve(m.Path)
	if !ok {
		writeText(w, 404, msgStaticNotFound)
		return
	}
	f, err := os.Open(full)
	if err != nil {
		writeText(w, 404, msgStaticNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		writeText(w, 404, msgStaticNotFound)
		return
	}
	h := w.Header()
	h.Set("Content-Type", ContentType(full))
	h.Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	w.WriteHeader(200)
	_, _ = io.Copy(w, f)
}
