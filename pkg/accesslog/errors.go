package accesslog

import "fmt"

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "insert", "query", "delete", etc.
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("access log storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid query.
type QueryError struct {
	Field string // Offending query field
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("access log query error [field=%s]: %v", e.Field, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// RecorderError represents a record that could not be enqueued or
// written.
type RecorderError struct {
	RecordID string
	Cause    error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	return fmt.Sprintf("access log recorder error [record=%s]: %v", e.RecordID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

// ExportError represents a failure while exporting records.
type ExportError struct {
	Format  string // "json", "csv"
	Records int    // Number of records in the export
	Cause   error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("access log export error [format=%s, records=%d]: %v", e.Format, e.Records, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, records int, cause error) *ExportError {
	return &ExportError{Format: format, Records: records, Cause: cause}
}
