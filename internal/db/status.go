package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calebmorris/prospector/internal/schema"
)

// RecordSyncStatus replaces the stored status row for the given entity
// type. Idempotent upsert keyed by entity_type.
func (db *DB) RecordSyncStatus(s *schema.SyncStatus) error {
	return db.RecordSyncStatusContext(context.Background(), s)
}

// RecordSyncStatusContext replaces the status row with context support.
func (db *DB) RecordSyncStatusContext(ctx context.Context, s *schema.SyncStatus) error {
	if !schema.ValidEntityType(s.EntityType) {
		return fmt.Errorf("unknown entity type %q", s.EntityType)
	}

	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO sync_status (
		entity_type, last_remote_pull_at, last_local_write_at,
		remote_record_count, local_record_count, conflicts_detected,
		status, message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(entity_type) DO UPDATE SET
		last_remote_pull_at = excluded.last_remote_pull_at,
		last_local_write_at = excluded.last_local_write_at,
		remote_record_count = excluded.remote_record_count,
		local_record_count = excluded.local_record_count,
		conflicts_detected = excluded.conflicts_detected,
		status = excluded.status,
		message = excluded.message`,
		string(s.EntityType),
		timeToNullString(s.LastRemotePullAt),
		timeToNullString(s.LastLocalWriteAt),
		s.RemoteRecordCount, s.LocalRecordCount, s.ConflictsDetected,
		string(s.Status), stringToNull(s.Message),
	)
	if err != nil {
		return fmt.Errorf("failed to record sync status for %s: %w", s.EntityType, err)
	}
	return nil
}

// GetSyncStatus returns the status row for one entity type, or nil when
// the entity type has never been synced.
func (db *DB) GetSyncStatus(ctx context.Context, et schema.EntityType) (*schema.SyncStatus, error) {
	row := db.conn.QueryRowContext(ctx, `
	SELECT entity_type, last_remote_pull_at, last_local_write_at,
	       remote_record_count, local_record_count, conflicts_detected,
	       status, message
	FROM sync_status WHERE entity_type = ?`, string(et))

	s, err := scanSyncStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status for %s: %w", et, err)
	}
	return s, nil
}

// GetSyncStatuses returns the current status row per entity type,
// ordered by entity type name.
func (db *DB) GetSyncStatuses(ctx context.Context) ([]*schema.SyncStatus, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT entity_type, last_remote_pull_at, last_local_write_at,
	       remote_record_count, local_record_count, conflicts_detected,
	       status, message
	FROM sync_status ORDER BY entity_type ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*schema.SyncStatus
	for rows.Next() {
		s, err := scanSyncStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync statuses: %w", err)
	}
	return statuses, nil
}

func scanSyncStatus(row rowScanner) (*schema.SyncStatus, error) {
	var s schema.SyncStatus
	var entityType, status string
	var lastPull, lastWrite, message sql.NullString

	err := row.Scan(
		&entityType, &lastPull, &lastWrite,
		&s.RemoteRecordCount, &s.LocalRecordCount, &s.ConflictsDetected,
		&status, &message,
	)
	if err != nil {
		return nil, err
	}

	s.EntityType = schema.EntityType(entityType)
	s.Status = schema.SyncState(status)
	s.LastRemotePullAt = nullStringToTime(lastPull)
	s.LastLocalWriteAt = nullStringToTime(lastWrite)
	s.Message = message.String
	return &s, nil
}
