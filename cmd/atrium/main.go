// Atrium Vestibule is a multi-tenant HTTP front end.
//
// It serves many virtual hosts from one process, providing:
//   - Virtual host routing keyed by (hostname, port)
//   - Per-host TLS with SNI certificate selection and hot reload
//   - Longest-prefix path routing to static, proxy, and status handlers
//   - HTTP/1.1, HTTP/2, and HTTP/3 listeners with supervised lifecycle
//   - SQLite-backed access logging with scheduled retention
//
// Usage:
//
//	# Start server with default configuration
//	atrium run
//
//	# Start with custom configuration file
//	atrium run --config /path/to/config.yaml
//
//	# Show version information
//	atrium version
//
//	# Validate a configuration file
//	atrium validate --config config.yaml
//
//	# Query the access log
//	atrium logs query --host example.com --status-min 500
//
//	# Generate a self-signed certificate for testing
//	atrium certs generate --host localhost
//
// For complete documentation, see: https://github.com/atrium-hq/vestibule
package main

func main() {
	Execute()
}
