package vhost

import (
	"net/http"
	"testing"
)

func nopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"//", "/"},
		{"/a", "/a"},
		{"/a/", "/a"},
		{"/a//b", "/a/b"},
		{"/a//b///c/", "/a/b/c"},
		{"/a/b", "/a/b"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRouterRegisterRejectsInvalid(t *testing.T) {
	r := NewPathRouter()

	if err := r.Register("", nopHandler()); err == nil {
		t.Error("Register(\"\") expected error, got nil")
	}
	if err := r.Register("no-slash", nopHandler()); err == nil {
		t.Error("Register without leading slash expected error, got nil")
	}
	if err := r.Register("/ok", nil); err == nil {
		t.Error("Register with nil handler expected error, got nil")
	}
}

func TestRouterDuplicatePattern(t *testing.T) {
	r := NewPathRouter()

	if err := r.Register("/api", nopHandler()); err != nil {
		t.Fatalf("Register(/api) error = %v", err)
	}

	// Same pattern after normalization.
	err := r.Register("/api/", nopHandler())
	if err == nil {
		t.Fatal("expected DuplicatePathError, got nil")
	}
	if _, ok := err.(*DuplicatePathError); !ok {
		t.Errorf("expected *DuplicatePathError, got %T", err)
	}

	if r.Len() != 1 {
		t.Errorf("Len() = %d after failed registration, want 1", r.Len())
	}
}

func TestRouterLongestPrefixWins(t *testing.T) {
	r := NewPathRouter()
	for _, p := range []string{"/", "/api", "/api/v1", "/static"} {
		if err := r.Register(p, nopHandler()); err != nil {
			t.Fatalf("Register(%q) error = %v", p, err)
		}
	}

	tests := []struct {
		path        string
		wantPattern string
		wantMatch   bool
	}{
		{"/", "/", true},
		{"/index.html", "/", true},
		{"/api", "/api", true},
		{"/api/users", "/api", true},
		{"/api/v1", "/api/v1", true},
		{"/api/v1/things", "/api/v1", true},
		{"/api/v10", "/api", true}, // segment boundary: /api/v1 must not match /api/v10
		{"/apiary", "/", true},     // /api must not match /apiary
		{"/static/css/a.css", "/static", true},
		{"/static//css", "/static", true}, // normalized before matching
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, pattern, ok := r.Resolve(tt.path)
			if ok != tt.wantMatch {
				t.Fatalf("Resolve(%q) matched = %v, want %v", tt.path, ok, tt.wantMatch)
			}
			if pattern != tt.wantPattern {
				t.Errorf("Resolve(%q) pattern = %q, want %q", tt.path, pattern, tt.wantPattern)
			}
		})
	}
}

func TestRouterNoRootNoMatch(t *testing.T) {
	r := NewPathRouter()
	if err := r.Register("/api", nopHandler()); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := r.Resolve("/other"); ok {
		t.Error("Resolve(/other) matched, want no match")
	}
}

func TestRouterPatterns(t *testing.T) {
	r := NewPathRouter()
	for _, p := range []string{"/b", "/a", "/c"} {
		if err := r.Register(p, nopHandler()); err != nil {
			t.Fatal(err)
		}
	}

	got := r.Patterns()
	want := []string{"/b", "/a", "/c"} // insertion order
	if len(got) != len(want) {
		t.Fatalf("Patterns() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Patterns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
