package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/accesslog"
	"atrium-hq/vestibule/pkg/accesslog/export"
	"atrium-hq/vestibule/pkg/accesslog/retention"
	"atrium-hq/vestibule/pkg/accesslog/storage"
	"atrium-hq/vestibule/pkg/cli"
	"atrium-hq/vestibule/pkg/config"
)

var logsFlags struct {
	timeRange  string
	host       string
	method     string
	pathPrefix string
	status     int
	statusMin  int
	statusMax  int
	limit      int
	offset     int
	format     string
	output     string
	olderThan  int
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the access log",
	Long: `Query, export, and prune access log records.

The logs command reads the access log database written by a running
server. Records can be filtered by time range, virtual host, method,
path prefix, and status code, and exported as text, JSON, or CSV.

Subcommands:
  query   - Query records with filters
  export  - Export matching records to a file
  prune   - Delete records older than a cutoff

Examples:
  # Show recent server errors
  atrium logs query --status-min 500

  # Requests to one host in a time window
  atrium logs query --host example.com \
    --time-range "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"

  # Export a day of traffic as CSV
  atrium logs export --format csv --output traffic.csv`,
}

var logsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query access log records",
	Long: `Query access log records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"

Examples:
  # Most recent requests
  atrium logs query --limit 20

  # Errors on one virtual host
  atrium logs query --host api.example.com --status-min 400

  # POST requests under /api
  atrium logs query --method POST --path-prefix /api`,
	RunE: queryLogs,
}

var logsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export access log records",
	Long: `Export matching access log records as JSON or CSV.

Examples:
  # Export everything as pretty JSON
  atrium logs export --format json --output access.json

  # Export one host's errors as CSV
  atrium logs export --host example.com --status-min 500 \
    --format csv --output errors.csv`,
	RunE: exportLogs,
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old access log records",
	Long: `Delete access log records older than a cutoff.

This runs the same pruning logic as the scheduled retention job, using
either the configured retention period or an explicit --older-than.

Examples:
  # Prune using the configured retention period
  atrium logs prune

  # Delete everything older than 7 days
  atrium logs prune --older-than 7`,
	RunE: pruneLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsQueryCmd, logsExportCmd, logsPruneCmd)

	for _, c := range []*cobra.Command{logsQueryCmd, logsExportCmd} {
		c.Flags().StringVar(&logsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&logsFlags.host, "host", "", "filter by virtual host")
		c.Flags().StringVar(&logsFlags.method, "method", "", "filter by HTTP method")
		c.Flags().StringVar(&logsFlags.pathPrefix, "path-prefix", "", "filter by path prefix")
		c.Flags().IntVar(&logsFlags.status, "status", 0, "filter by exact status code")
		c.Flags().IntVar(&logsFlags.statusMin, "status-min", 0, "minimum status code")
		c.Flags().IntVar(&logsFlags.statusMax, "status-max", 0, "maximum status code")
		c.Flags().IntVar(&logsFlags.limit, "limit", 100, "max results")
		c.Flags().IntVar(&logsFlags.offset, "offset", 0, "pagination offset")
		c.Flags().StringVarP(&logsFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	logsQueryCmd.Flags().StringVar(&logsFlags.format, "format", "text", "output format: text, json, csv")
	logsExportCmd.Flags().StringVar(&logsFlags.format, "format", "json", "output format: json, csv")

	logsPruneCmd.Flags().IntVar(&logsFlags.olderThan, "older-than", 0, "delete records older than this many days (default: configured retention)")
}

// openStore opens the configured access log backend for CLI use.
func openStore() (accesslog.Store, *config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if cfg.AccessLog.Backend != "sqlite" {
		return nil, nil, fmt.Errorf("logs commands require the sqlite backend (configured: %s)", cfg.AccessLog.Backend)
	}

	store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path:         cfg.AccessLog.SQLite.Path,
		MaxOpenConns: cfg.AccessLog.SQLite.MaxOpenConns,
		MaxIdleConns: cfg.AccessLog.SQLite.MaxIdleConns,
		WALMode:      *cfg.AccessLog.SQLite.WALMode,
		BusyTimeout:  cfg.AccessLog.SQLite.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open access log: %w", err)
	}
	return store, cfg, nil
}

// buildQuery converts the shared flag set into a storage query.
func buildQuery() (*accesslog.Query, error) {
	query := &accesslog.Query{
		Host:       logsFlags.host,
		Method:     logsFlags.method,
		PathPrefix: logsFlags.pathPrefix,
		Status:     logsFlags.status,
		StatusMin:  logsFlags.statusMin,
		StatusMax:  logsFlags.statusMax,
		Limit:      logsFlags.limit,
		Offset:     logsFlags.offset,
	}

	if logsFlags.timeRange != "" {
		parts := strings.Split(logsFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}
		since, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		until, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.Since = &since
		query.Until = &until
	}

	return query, nil
}

// openOutput returns the output writer, defaulting to stdout.
func openOutput() (*os.File, func(), error) {
	if logsFlags.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(logsFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func queryLogs(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("logs query", err)
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	switch logsFlags.format {
	case "json":
		return export.NewJSONExporter(true).Export(ctx, records, out)
	case "csv":
		return export.NewCSVExporter(true).Export(ctx, records, out)
	case "text":
		return printRecordsText(out, records)
	default:
		return fmt.Errorf("unsupported format: %s", logsFlags.format)
	}
}

func exportLogs(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("logs export", err)
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	var exporter accesslog.Exporter
	switch logsFlags.format {
	case "json":
		exporter = export.NewJSONExporter(true)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return fmt.Errorf("unsupported format: %s", logsFlags.format)
	}

	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("logs export", err)
	}

	if logsFlags.output != "" {
		cli.NewStatus(os.Stdout).Step("Exported %d records to %s", len(records), logsFlags.output)
	}
	return nil
}

func pruneLogs(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	days := logsFlags.olderThan
	if days == 0 {
		days = cfg.AccessLog.Retention.Days
	}
	if days <= 0 {
		return fmt.Errorf("no retention period: set --older-than or access_log.retention.days")
	}

	pruner := retention.NewPruner(store, &retention.Config{
		RetentionDays: days,
		MaxRecords:    cfg.AccessLog.Retention.MaxRecords,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("logs prune", err)
	}

	cli.NewStatus(os.Stdout).Step("Deleted %d records older than %d days", deleted, days)
	return nil
}

// printRecordsText renders records as a human-readable table.
func printRecordsText(out *os.File, records []*accesslog.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	fmt.Fprintf(out, "%-25s %-22s %-7s %-30s %5s %10s %10s\n",
		"TIME", "HOST", "METHOD", "PATH", "CODE", "BYTES", "DURATION")
	for _, r := range records {
		path := r.Path
		if len(path) > 30 {
			path = path[:27] + "..."
		}
		fmt.Fprintf(out, "%-25s %-22s %-7s %-30s %5d %10d %10s\n",
			r.Time.Format(time.RFC3339),
			fmt.Sprintf("%s:%d", r.Host, r.Port),
			r.Method,
			path,
			r.Status,
			r.ResponseBytes,
			r.Duration.Round(time.Microsecond),
		)
	}
	fmt.Fprintf(out, "\nTotal: %d records\n", len(records))
	return nil
}
