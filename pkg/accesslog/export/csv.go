package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
)

// CSVExporter exports access log records to CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to the writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*accesslog.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return accesslog.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return accesslog.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return accesslog.NewExportError("csv", len(records), err)
	}
	return nil
}

// headerRow returns the CSV column names, in row order.
func headerRow() []string {
	return []string{
		"id", "request_id", "time",
		"host", "port", "route", "listener",
		"method", "path", "query", "proto", "tls",
		"remote_ip", "user_agent", "referer",
		"status", "response_bytes", "duration_ms",
	}
}

// recordToRow flattens one record into CSV fields.
func recordToRow(record *accesslog.Record) []string {
	return []string{
		record.ID,
		record.RequestID,
		record.Time.UTC().Format(time.RFC3339Nano),
		record.Host,
		strconv.Itoa(int(record.Port)),
		record.Route,
		record.Listener,
		record.Method,
		record.Path,
		record.Query,
		record.Proto,
		strconv.FormatBool(record.TLS),
		record.RemoteIP,
		record.UserAgent,
		record.Referer,
		strconv.Itoa(record.Status),
		strconv.FormatInt(record.ResponseBytes, 10),
		strconv.FormatFloat(float64(record.Duration.Microseconds())/1000.0, 'f', 3, 64),
	}
}
