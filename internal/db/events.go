package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/google/uuid"
)

const eventColumns = `local_id, remote_id, account_local_id, event_type, title,
	description, occurred_at, extra, created_at, last_updated_at, remote_last_modified_at`

// UpsertTimelineEvent inserts or updates a timeline event keyed by
// remote_id. Returns the row's local_id.
func (db *DB) UpsertTimelineEvent(e *schema.TimelineEvent) (string, error) {
	return db.UpsertTimelineEventContext(context.Background(), e)
}

// UpsertTimelineEventContext inserts or updates an event with context support.
func (db *DB) UpsertTimelineEventContext(ctx context.Context, e *schema.TimelineEvent) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	extraJSON, err := marshalJSONColumn(e.Extra)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extra fields: %w", err)
	}

	if e.RemoteID != "" {
		var localID string
		err := db.conn.QueryRowContext(ctx,
			`SELECT local_id FROM timeline_events WHERE remote_id = ?`, e.RemoteID).Scan(&localID)
		switch {
		case err == nil:
			_, err = db.conn.ExecContext(ctx, `
			UPDATE timeline_events SET
				account_local_id = ?, event_type = ?, title = ?, description = ?,
				occurred_at = ?, extra = ?, last_updated_at = ?, remote_last_modified_at = ?
			WHERE local_id = ?`,
				stringToNull(e.AccountLocalID), e.EventType, e.Title, e.Description,
				timeToNullString(e.OccurredAt), extraJSON,
				now, timeToNullString(e.RemoteLastModifiedAt),
				localID,
			)
			if err != nil {
				return "", fmt.Errorf("failed to update timeline event %s: %w", localID, err)
			}
			return localID, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("failed to look up timeline event by remote id: %w", err)
		}
	}

	localID := e.LocalID
	if localID == "" {
		localID = uuid.NewString()
	}

	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO timeline_events (`+eventColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		localID, stringToNull(e.RemoteID), stringToNull(e.AccountLocalID),
		e.EventType, e.Title, e.Description, timeToNullString(e.OccurredAt),
		extraJSON, now, now, timeToNullString(e.RemoteLastModifiedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert timeline event: %w", err)
	}
	return localID, nil
}

// ListTimelineEvents returns an account's events, most recent first.
// An empty accountLocalID returns events across all accounts.
func (db *DB) ListTimelineEvents(ctx context.Context, accountLocalID string, limit int) ([]*schema.TimelineEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM timeline_events`
	var args []interface{}
	if accountLocalID != "" {
		query += " WHERE account_local_id = ?"
		args = append(args, accountLocalID)
	}
	query += " ORDER BY occurred_at DESC, last_updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline events: %w", err)
	}
	defer rows.Close()

	var events []*schema.TimelineEvent
	for rows.Next() {
		var e schema.TimelineEvent
		var remoteID, accountID, eventType, description, occurredAt, extraJSON, remoteModified sql.NullString
		var createdAt, updatedAt string

		err := rows.Scan(
			&e.LocalID, &remoteID, &accountID, &eventType, &e.Title,
			&description, &occurredAt, &extraJSON, &createdAt, &updatedAt, &remoteModified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}

		e.RemoteID = remoteID.String
		e.AccountLocalID = accountID.String
		e.EventType = eventType.String
		e.Description = description.String
		e.OccurredAt = nullStringToTime(occurredAt)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			e.LastUpdatedAt = t
		}
		e.RemoteLastModifiedAt = nullStringToTime(remoteModified)
		e.Extra, err = unmarshalJSONColumn(extraJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra fields: %w", err)
		}

		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline events: %w", err)
	}
	return events, nil
}
