// Package accesslog defines the access log record model and the storage
// contract for persisting it.
//
// Every request served by a virtual host produces one Record. Records
// are written asynchronously by the recorder subpackage so request
// handling never blocks on storage, stored by the storage subpackage
// (SQLite or in-memory), pruned by the retention subpackage, and
// exported by the export subpackage (JSON, CSV).
package accesslog
