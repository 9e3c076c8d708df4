package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticConfig configures a static file handler.
type StaticConfig struct {
	// Directory is the filesystem root served by this handler.
	Directory string

	// StripPrefix is removed from the request path before it is joined
	// to Directory. Usually the route pattern the handler is mounted on.
	StripPrefix string

	// IndexFiles are tried, in order, when the request resolves to a
	// directory. When set, requests for missing paths without a file
	// extension also fall back to the first index found at the root,
	// which keeps client-side routed applications working.
	IndexFiles []string

	// ErrorPage renders 404 and 405 responses, typically the owning
	// virtual host's status pages. Nil falls back to plain text.
	ErrorPage ErrorPage
}

// Static serves files from a directory. Path traversal is rejected
// before any filesystem access; every served file stays under the
// configured root. Range requests, HEAD, Content-Type, and
// Last-Modified come from http.ServeFile.
type Static struct {
	config StaticConfig
	root   string
	logger *slog.Logger
}

// NewStatic creates a static handler rooted at the configured
// directory.
func NewStatic(config StaticConfig) (*Static, error) {
	if config.Directory == "" {
		return nil, errors.New("static handler: directory is required")
	}
	root, err := filepath.Abs(config.Directory)
	if err != nil {
		return nil, fmt.Errorf("static handler: invalid directory %q: %w", config.Directory, err)
	}
	return &Static{
		config: config,
		root:   root,
		logger: slog.Default().With("component", "handlers.static", "directory", root),
	}, nil
}

// ServeHTTP resolves the request path under the root and serves it.
func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		serveError(w, s.config.ErrorPage, http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, s.config.StripPrefix)

	file, ok := s.resolve(rel)
	if !ok {
		serveError(w, s.config.ErrorPage, http.StatusNotFound)
		return
	}

	info, err := os.Stat(file)
	switch {
	case err == nil && info.IsDir():
		index, found := s.findIndex(file)
		if !found {
			serveError(w, s.config.ErrorPage, http.StatusNotFound)
			return
		}
		file = index

	case err != nil:
		// SPA fallback: extensionless misses serve the root index.
		if len(s.config.IndexFiles) > 0 && path.Ext(rel) == "" {
			index, found := s.findIndex(s.root)
			if !found {
				serveError(w, s.config.ErrorPage, http.StatusNotFound)
				return
			}
			file = index
			break
		}
		serveError(w, s.config.ErrorPage, http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, file)
}

// resolve joins the request path to the root and confines the result.
func (s *Static) resolve(requestPath string) (string, bool) {
	cleaned := path.Clean("/" + requestPath)
	file := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if file != s.root && !strings.HasPrefix(file, s.root+string(filepath.Separator)) {
		return "", false
	}
	return file, true
}

// findIndex returns the first configured index file present in dir.
func (s *Static) findIndex(dir string) (string, bool) {
	for _, name := range s.config.IndexFiles {
		candidate := filepath.Join(dir, filepath.Base(name))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
