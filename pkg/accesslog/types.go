package accesslog

import (
	"context"
	"io"
	"time"
)

// Record represents one request served by a virtual host.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // From the X-Request-ID header

	// Timestamps
	Time time.Time `json:"time"` // When the request arrived

	// Routing
	Host     string `json:"host"`     // Virtual host that served the request
	Port     uint16 `json:"port"`     // Listener port
	Route    string `json:"route"`    // Matched path pattern, empty on 404
	Listener string `json:"listener"` // Listener key (addr:port)

	// Request
	Method    string `json:"method"`
	Path      string `json:"path"`
	Query     string `json:"query,omitempty"`
	Proto     string `json:"proto"` // "HTTP/1.1", "HTTP/2.0", "HTTP/3.0"
	TLS       bool   `json:"tls"`
	RemoteIP  string `json:"remote_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty"`

	// Response
	Status        int           `json:"status"`
	ResponseBytes int64         `json:"response_bytes"`
	Duration      time.Duration `json:"duration"`
}

// Query defines filter parameters for querying access log records.
type Query struct {
	// Time range, inclusive.
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// Filters
	Host       string `json:"host,omitempty"`        // Exact virtual host
	Method     string `json:"method,omitempty"`      // Exact HTTP method
	PathPrefix string `json:"path_prefix,omitempty"` // Path prefix match
	Status     int    `json:"status,omitempty"`      // Exact status code
	StatusMin  int    `json:"status_min,omitempty"`  // Inclusive lower bound
	StatusMax  int    `json:"status_max,omitempty"`  // Inclusive upper bound

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the interface for access log storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert persists a record.
	Insert(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters, newest first.
	// Returns an empty slice if nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes records older than the cutoff and returns
	// how many were deleted. Used for retention enforcement.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

// Exporter writes access log records to a writer in a specific format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
