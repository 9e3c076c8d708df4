package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"atrium-hq/vestibule/pkg/accesslog"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/access.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements accesslog.Store on a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database and initializes
// the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "accesslog.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, accesslog.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite access log storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets pragmas and creates the schema.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return accesslog.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return accesslog.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return accesslog.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return accesslog.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return accesslog.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return accesslog.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Insert persists a record.
func (s *SQLiteStore) Insert(ctx context.Context, record *accesslog.Record) error {
	query := `
		INSERT INTO access_log (
			id, request_id, time,
			host, port, route, listener,
			method, path, query, proto, tls, remote_ip, user_agent, referer,
			status, response_bytes, duration_us
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.Time.UTC(),
		record.Host, record.Port, record.Route, record.Listener,
		record.Method, record.Path, record.Query, record.Proto, record.TLS,
		record.RemoteIP, record.UserAgent, record.Referer,
		record.Status, record.ResponseBytes, record.Duration.Microseconds(),
	)
	if err != nil {
		return accesslog.NewStorageError("sqlite", "insert", err)
	}
	return nil
}

// Query retrieves records matching the filters, newest first.
func (s *SQLiteStore) Query(ctx context.Context, query *accesslog.Query) ([]*accesslog.Record, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := `SELECT
		id, request_id, time,
		host, port, route, listener,
		method, path, query, proto, tls, remote_ip, user_agent, referer,
		status, response_bytes, duration_us
	FROM access_log`
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY time DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, accesslog.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*accesslog.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, accesslog.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, accesslog.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, query *accesslog.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM access_log"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, accesslog.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteBefore removes records older than the cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM access_log WHERE time < ?", cutoff.UTC())
	if err != nil {
		return 0, accesslog.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, accesslog.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Ping verifies the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return accesslog.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.logger.Debug("closing SQLite access log storage")
	if err := s.db.Close(); err != nil {
		return accesslog.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildWhereClause translates query filters into SQL conditions.
func buildWhereClause(query *accesslog.Query) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if query.Since != nil {
		conditions = append(conditions, "time >= ?")
		args = append(args, query.Since.UTC())
	}
	if query.Until != nil {
		conditions = append(conditions, "time <= ?")
		args = append(args, query.Until.UTC())
	}
	if query.Host != "" {
		conditions = append(conditions, "host = ?")
		args = append(args, query.Host)
	}
	if query.Method != "" {
		conditions = append(conditions, "method = ?")
		args = append(args, query.Method)
	}
	if query.PathPrefix != "" {
		conditions = append(conditions, `path LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(query.PathPrefix)+"%")
	}
	if query.Status != 0 {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}
	if query.StatusMin != 0 {
		conditions = append(conditions, "status >= ?")
		args = append(args, query.StatusMin)
	}
	if query.StatusMax != 0 {
		conditions = append(conditions, "status <= ?")
		args = append(args, query.StatusMax)
	}

	return strings.Join(conditions, " AND "), args
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// scanRecord scans one row into a Record.
func scanRecord(rows *sql.Rows) (*accesslog.Record, error) {
	var (
		record     accesslog.Record
		port       int
		durationUs int64
		requestID  sql.NullString
		route      sql.NullString
		listener   sql.NullString
		queryStr   sql.NullString
		proto      sql.NullString
		remoteIP   sql.NullString
		userAgent  sql.NullString
		referer    sql.NullString
	)

	err := rows.Scan(
		&record.ID, &requestID, &record.Time,
		&record.Host, &port, &route, &listener,
		&record.Method, &record.Path, &queryStr, &proto, &record.TLS,
		&remoteIP, &userAgent, &referer,
		&record.Status, &record.ResponseBytes, &durationUs,
	)
	if err != nil {
		return nil, err
	}

	record.Port = uint16(port)
	record.Duration = time.Duration(durationUs) * time.Microsecond
	record.RequestID = requestID.String
	record.Route = route.String
	record.Listener = listener.String
	record.Query = queryStr.String
	record.Proto = proto.String
	record.RemoteIP = remoteIP.String
	record.UserAgent = userAgent.String
	record.Referer = referer.String

	return &record, nil
}
