// Package export writes access log records to JSON and CSV, backing the
// CLI's log export command.
package export

import (
	"context"
	"encoding/json"
	"io"

	"atrium-hq/vestibule/pkg/accesslog"
)

// JSONExporter exports access log records to JSON.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to the writer as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, records []*accesslog.Record, w io.Writer) error {
	if records == nil {
		records = []*accesslog.Record{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return accesslog.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return accesslog.NewExportError("json", len(records), err)
	}
	return nil
}
