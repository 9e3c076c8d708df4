package handlers

import (
	"fmt"
	"net/http"
)

// Status always responds with a fixed status code and an optional body.
// With no body configured, a minimal HTML page naming the status is
// served. Useful for maintenance pages and for reserving paths.
type Status struct {
	code int
	body []byte
}

// NewStatus creates a fixed-status handler. code must be a registered
// HTTP status code.
func NewStatus(code int, body []byte) (*Status, error) {
	if http.StatusText(code) == "" {
		return nil, fmt.Errorf("status handler: unknown status code %d", code)
	}
	return &Status{code: code, body: body}, nil
}

// ServeHTTP writes the configured status.
func (s *Status) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(s.code)

	if len(s.body) > 0 {
		_, _ = w.Write(s.body)
		return
	}
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><title>%d %s</title></head>\n<body>\n<h1>%d %s</h1>\n</body>\n</html>\n",
		s.code, http.StatusText(s.code), s.code, http.StatusText(s.code))
}
