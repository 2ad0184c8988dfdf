// Package db provides the local mirror store for prospector.
//
// The mirror is an embedded SQLite database holding one table per synced
// entity type (accounts, contacts, timeline_events, partnerships), a
// sync_status table with one row per entity type, and the local-only
// research_queue table.
//
// The database runs in WAL mode so dashboard-style readers stay
// responsive during a sync writer pass. Upserts are keyed by remote_id
// with lookup-before-insert, so a given non-null remote_id can never map
// to more than one local row. All reads and writes are purely local;
// nothing in this package touches the network.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection with mirror-store functionality.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the database doesn't exist, it is created; call InitSchema before
// first use. The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	// WAL mode: readers see either pre- or post-sync state, never a
	// partially written row.
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection after a WAL checkpoint.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the mirror tables if they don't exist. Idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	-- One mirror table per synced entity type
	CREATE TABLE IF NOT EXISTS accounts (
		local_id TEXT PRIMARY KEY,
		remote_id TEXT UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		domain TEXT,
		industry TEXT,
		employee_count INTEGER NOT NULL DEFAULT 0,
		lead_score REAL NOT NULL DEFAULT 0,
		status TEXT,
		extra TEXT,  -- JSON object of unmapped remote fields
		created_at TEXT NOT NULL,
		last_updated_at TEXT NOT NULL,
		remote_last_modified_at TEXT
	);

	CREATE TABLE IF NOT EXISTS contacts (
		local_id TEXT PRIMARY KEY,
		remote_id TEXT UNIQUE,
		account_local_id TEXT,
		first_name TEXT,
		last_name TEXT,
		full_name TEXT,
		email TEXT,
		title TEXT,
		phone TEXT,
		department TEXT,
		location TEXT,
		linkedin_url TEXT,
		website_url TEXT,
		lead_score REAL NOT NULL DEFAULT 0,
		engagement_score REAL NOT NULL DEFAULT 0,
		field_sources TEXT,  -- JSON object: field name -> source name
		quality_score REAL NOT NULL DEFAULT 0,
		extra TEXT,
		created_at TEXT NOT NULL,
		last_updated_at TEXT NOT NULL,
		remote_last_modified_at TEXT
	);

	CREATE TABLE IF NOT EXISTS timeline_events (
		local_id TEXT PRIMARY KEY,
		remote_id TEXT UNIQUE,
		account_local_id TEXT,
		event_type TEXT,
		title TEXT NOT NULL DEFAULT '',
		description TEXT,
		occurred_at TEXT,
		extra TEXT,
		created_at TEXT NOT NULL,
		last_updated_at TEXT NOT NULL,
		remote_last_modified_at TEXT
	);

	CREATE TABLE IF NOT EXISTS partnerships (
		local_id TEXT PRIMARY KEY,
		remote_id TEXT UNIQUE,
		account_local_id TEXT,
		partner_name TEXT NOT NULL DEFAULT '',
		category TEXT,
		strength REAL NOT NULL DEFAULT 0,
		detected_at TEXT,
		extra TEXT,
		created_at TEXT NOT NULL,
		last_updated_at TEXT NOT NULL,
		remote_last_modified_at TEXT
	);

	-- One row per entity type
	CREATE TABLE IF NOT EXISTS sync_status (
		entity_type TEXT PRIMARY KEY,
		last_remote_pull_at TEXT,
		last_local_write_at TEXT,
		remote_record_count INTEGER NOT NULL DEFAULT 0,
		local_record_count INTEGER NOT NULL DEFAULT 0,
		conflicts_detected INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		message TEXT
	);

	-- Local-only workflow state, never synced outward
	CREATE TABLE IF NOT EXISTS research_queue (
		id TEXT PRIMARY KEY,
		account_local_id TEXT NOT NULL,
		account_name TEXT NOT NULL,
		phases TEXT NOT NULL,  -- JSON array of phase names
		current_phase TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		priority INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		progress_percentage INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	-- Indexes for dashboard-style queries
	CREATE INDEX IF NOT EXISTS idx_accounts_name ON accounts(name);
	CREATE INDEX IF NOT EXISTS idx_accounts_domain ON accounts(domain);
	CREATE INDEX IF NOT EXISTS idx_accounts_score ON accounts(lead_score);
	CREATE INDEX IF NOT EXISTS idx_contacts_account ON contacts(account_local_id);
	CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
	CREATE INDEX IF NOT EXISTS idx_contacts_score ON contacts(lead_score);
	CREATE INDEX IF NOT EXISTS idx_contacts_updated ON contacts(last_updated_at);
	CREATE INDEX IF NOT EXISTS idx_events_account ON timeline_events(account_local_id);
	CREATE INDEX IF NOT EXISTS idx_events_occurred ON timeline_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_partnerships_account ON partnerships(account_local_id);
	CREATE INDEX IF NOT EXISTS idx_queue_status ON research_queue(status, priority);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// CountEntities returns the row count of an entity type's mirror table.
func (db *DB) CountEntities(ctx context.Context, et schema.EntityType) (int, error) {
	if !schema.ValidEntityType(et) {
		return 0, fmt.Errorf("unknown entity type %q", et)
	}
	var count int
	// Table names are constrained to the EntityType enum above.
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", string(et))
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", et, err)
	}
	return count, nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// stringToNull stores empty strings as NULL so the remote_id UNIQUE
// constraint only applies to correlated rows.
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// marshalJSONColumn serializes a map column, storing NULL for empty maps.
func marshalJSONColumn(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{Valid: false}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalJSONColumn deserializes a nullable JSON object column.
func unmarshalJSONColumn(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
