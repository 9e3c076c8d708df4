package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the access log schema.
const Schema = `
-- Access log records table
CREATE TABLE IF NOT EXISTS access_log (
    id TEXT PRIMARY KEY,
    request_id TEXT,

    time TIMESTAMP NOT NULL,

    -- Routing
    host TEXT NOT NULL,
    port INTEGER NOT NULL,
    route TEXT,
    listener TEXT,

    -- Request
    method TEXT NOT NULL,
    path TEXT NOT NULL,
    query TEXT,
    proto TEXT,
    tls BOOLEAN NOT NULL DEFAULT 0,
    remote_ip TEXT,
    user_agent TEXT,
    referer TEXT,

    -- Response
    status INTEGER NOT NULL,
    response_bytes INTEGER,
    duration_us INTEGER
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_access_log_time ON access_log(time);
CREATE INDEX IF NOT EXISTS idx_access_log_host ON access_log(host);
CREATE INDEX IF NOT EXISTS idx_access_log_status ON access_log(status);
CREATE INDEX IF NOT EXISTS idx_access_log_request_id ON access_log(request_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
