package vhost

import (
	"fmt"
	"net/http"
	"strings"
)

// PathEntry is a single registered route: a path pattern and the handler
// that owns it.
type PathEntry struct {
	Pattern string
	Handler http.Handler
}

// PathRouter matches request paths to registered handlers using
// longest-prefix matching. An exact match always beats a prefix match, the
// longest matching prefix wins among prefixes, and the first-registered
// entry wins ties. The zero value is not usable; create routers with
// NewPathRouter.
//
// Registration is not safe for concurrent use; it happens during
// configuration, before the registry is frozen. Resolve is safe for
// unlimited concurrent readers once registration is done.
type PathRouter struct {
	entries   []*PathEntry
	byPattern map[string]*PathEntry
}

// NewPathRouter creates an empty path router.
func NewPathRouter() *PathRouter {
	return &PathRouter{
		byPattern: make(map[string]*PathEntry),
	}
}

// Register adds a handler for the given path pattern.
// The pattern is normalized before registration (consecutive slashes
// collapsed, trailing slash dropped). Registering a pattern that is already
// present fails with DuplicatePathError and leaves the router unchanged.
func (r *PathRouter) Register(pattern string, handler http.Handler) error {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("path pattern %q must start with %q", pattern, "/")
	}
	if handler == nil {
		return fmt.Errorf("handler for pattern %q must not be nil", pattern)
	}

	normalized := NormalizePath(pattern)
	if _, exists := r.byPattern[normalized]; exists {
		return &DuplicatePathError{Pattern: normalized}
	}

	entry := &PathEntry{Pattern: normalized, Handler: handler}
	r.byPattern[normalized] = entry
	r.entries = append(r.entries, entry)
	return nil
}

// RegisterFunc adds a handler function for the given path pattern.
func (r *PathRouter) RegisterFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) error {
	return r.Register(pattern, http.HandlerFunc(handler))
}

// Resolve returns the handler whose pattern is the longest prefix of the
// request path, together with the matched pattern. Matching runs on the
// normalized path; the caller passes the original path to the handler
// untouched. The third return value is false when no pattern matches,
// which is a NotFound outcome rather than an error: the dispatcher maps it
// to the owning host's 404 page.
func (r *PathRouter) Resolve(requestPath string) (http.Handler, string, bool) {
	path := NormalizePath(requestPath)

	// Exact match takes precedence over any prefix match.
	if entry, ok := r.byPattern[path]; ok {
		return entry.Handler, entry.Pattern, true
	}

	var best *PathEntry
	for _, entry := range r.entries {
		if !patternMatches(entry.Pattern, path) {
			continue
		}
		// Strictly longer wins; equal length keeps the first registered.
		if best == nil || len(entry.Pattern) > len(best.Pattern) {
			best = entry
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best.Handler, best.Pattern, true
}

// Len returns the number of registered entries.
func (r *PathRouter) Len() int {
	return len(r.entries)
}

// Patterns returns the registered patterns in insertion order.
func (r *PathRouter) Patterns() []string {
	patterns := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		patterns = append(patterns, entry.Pattern)
	}
	return patterns
}

// patternMatches reports whether pattern is a path prefix of path.
// "/" matches everything; otherwise the prefix must end at a path segment
// boundary, so "/a" matches "/a/b" but not "/ab".
func patternMatches(pattern, path string) bool {
	if pattern == "/" {
		return true
	}
	if !strings.HasPrefix(path, pattern) {
		return false
	}
	return len(path) == len(pattern) || path[len(pattern)] == '/'
}

// NormalizePath collapses consecutive slashes and drops the trailing slash
// so that "/a//b/" and "/a/b" match the same entries. The root path "/" is
// preserved.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	normalized := b.String()
	if len(normalized) > 1 && strings.HasSuffix(normalized, "/") {
		normalized = normalized[:len(normalized)-1]
	}
	if normalized == "" {
		return "/"
	}
	return normalized
}
