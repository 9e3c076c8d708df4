// Package handlers provides the built-in route handlers a virtual host
// can mount on its paths: static file serving, reverse proxying to an
// upstream, and fixed status responses.
package handlers

import "net/http"

// ErrorPage renders the response for an error status code. Handlers
// accept one so their errors carry the owning virtual host's configured
// status pages; a nil ErrorPage falls back to a plain-text response.
type ErrorPage func(w http.ResponseWriter, code int)

// serveError renders code through page, or plain text when page is nil.
func serveError(w http.ResponseWriter, page ErrorPage, code int) {
	if page != nil {
		page(w, code)
		return
	}
	http.Error(w, http.StatusText(code), code)
}
