package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewStatusRejectsUnknownCode(t *testing.T) {
	for _, code := range []int{0, 99, 600, 222} {
		if _, err := NewStatus(code, nil); err == nil {
			t.Errorf("NewStatus(%d) = nil error", code)
		}
	}
}

func TestStatusWithBody(t *testing.T) {
	s, err := NewStatus(http.StatusServiceUnavailable, []byte("<h1>down for maintenance</h1>"))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "<h1>down for maintenance</h1>" {
		t.Errorf("body = %q", got)
	}
}

func TestStatusDefaultBody(t *testing.T) {
	s, err := NewStatus(http.StatusTeapot, nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "418") || !strings.Contains(body, http.StatusText(http.StatusTeapot)) {
		t.Errorf("body = %q, want the status code and text", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}
