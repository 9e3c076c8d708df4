// Package config defines the Vestibule configuration schema and its
// loading pipeline.
//
// Configuration is a single YAML document with six sections: server
// (listeners and connection timeouts), hosts (the virtual host table),
// access_log, telemetry, limits, and admin. LoadConfig parses a file,
// applies defaults, and validates; LoadConfigWithEnvOverrides additionally
// applies VESTIBULE_* environment variables on top of the file before a
// final validation pass.
//
// Validation collects every problem into a single ValidationError so an
// operator sees the full list at once rather than fixing errors one at a
// time. Cross-cutting rules live here too: duplicate (hostname, port)
// pairs, mixed TLS and plaintext hosts on one port, multiple default TLS
// hosts per port, and HTTP/3 listeners on ports with no TLS host are all
// rejected before any socket is bound.
package config
