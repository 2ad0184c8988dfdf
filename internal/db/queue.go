package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/google/uuid"
)

const queueColumns = `id, account_local_id, account_name, phases, current_phase,
	status, priority, created_at, started_at, completed_at,
	progress_percentage, error_message`

// InsertQueueItem creates a new research queue row and returns its id.
// The item is stored in the queued state regardless of the input status.
func (db *DB) InsertQueueItem(ctx context.Context, item *schema.ResearchQueueItem) (string, error) {
	stored := *item
	stored.Status = schema.QueueStatusQueued
	if err := stored.Validate(); err != nil {
		return "", fmt.Errorf("invalid queue item: %w", err)
	}

	phasesJSON, err := json.Marshal(stored.Phases)
	if err != nil {
		return "", fmt.Errorf("failed to marshal phases: %w", err)
	}

	id := stored.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO research_queue (`+queueColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, 0, NULL)`,
		id, stored.AccountLocalID, stored.AccountName, string(phasesJSON),
		stringToNull(stored.CurrentPhase), string(schema.QueueStatusQueued),
		stored.Priority, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert queue item: %w", err)
	}
	return id, nil
}

// GetQueueItem retrieves one queue item by id.
// Returns sql.ErrNoRows if not found.
func (db *DB) GetQueueItem(ctx context.Context, id string) (*schema.ResearchQueueItem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM research_queue WHERE id = ?`, id)
	return scanQueueItem(row)
}

// ListQueueByStatus returns queue items in the given state, highest
// priority first, oldest first within a priority.
func (db *DB) ListQueueByStatus(ctx context.Context, status schema.QueueStatus) ([]*schema.ResearchQueueItem, error) {
	if !schema.ValidQueueStatus(status) {
		return nil, fmt.Errorf("invalid queue status %q", status)
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT `+queueColumns+` FROM research_queue
	WHERE status = ?
	ORDER BY priority DESC, created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	var items []*schema.ResearchQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue items: %w", err)
	}
	return items, nil
}

// MarkQueueStarted transitions a queued item to active.
func (db *DB) MarkQueueStarted(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.ExecContext(ctx, `
	UPDATE research_queue SET status = ?, started_at = ?
	WHERE id = ? AND status = ?`,
		string(schema.QueueStatusActive), now, id, string(schema.QueueStatusQueued))
	if err != nil {
		return fmt.Errorf("failed to mark queue item started: %w", err)
	}
	return requireQueueRow(res, id)
}

// MarkQueueProgress updates an active item's progress and current phase.
func (db *DB) MarkQueueProgress(ctx context.Context, id string, percentage int, currentPhase string) error {
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("progress percentage must be between 0 and 100 (got %d)", percentage)
	}
	res, err := db.conn.ExecContext(ctx, `
	UPDATE research_queue SET progress_percentage = ?, current_phase = ?
	WHERE id = ? AND status = ?`,
		percentage, stringToNull(currentPhase), id, string(schema.QueueStatusActive))
	if err != nil {
		return fmt.Errorf("failed to mark queue progress: %w", err)
	}
	return requireQueueRow(res, id)
}

// MarkQueueCompleted transitions an active item to its completed
// terminal state with full progress.
func (db *DB) MarkQueueCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.ExecContext(ctx, `
	UPDATE research_queue SET status = ?, completed_at = ?, progress_percentage = 100
	WHERE id = ? AND status = ?`,
		string(schema.QueueStatusCompleted), now, id, string(schema.QueueStatusActive))
	if err != nil {
		return fmt.Errorf("failed to mark queue item completed: %w", err)
	}
	return requireQueueRow(res, id)
}

// MarkQueueFailed transitions an active item to its failed terminal state.
func (db *DB) MarkQueueFailed(ctx context.Context, id string, errorMessage string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.ExecContext(ctx, `
	UPDATE research_queue SET status = ?, completed_at = ?, error_message = ?
	WHERE id = ? AND status = ?`,
		string(schema.QueueStatusFailed), now, stringToNull(errorMessage),
		id, string(schema.QueueStatusActive))
	if err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return requireQueueRow(res, id)
}

// requireQueueRow converts a zero-row UPDATE into an error so invalid
// lifecycle transitions surface instead of passing silently.
func requireQueueRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("queue item %s not found or not in an eligible state", id)
	}
	return nil
}

func scanQueueItem(row rowScanner) (*schema.ResearchQueueItem, error) {
	var item schema.ResearchQueueItem
	var phasesJSON, status, createdAt string
	var currentPhase, startedAt, completedAt, errorMessage sql.NullString

	err := row.Scan(
		&item.ID, &item.AccountLocalID, &item.AccountName, &phasesJSON,
		&currentPhase, &status, &item.Priority, &createdAt,
		&startedAt, &completedAt, &item.ProgressPercentage, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(phasesJSON), &item.Phases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
	}
	item.CurrentPhase = currentPhase.String
	item.Status = schema.QueueStatus(status)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		item.CreatedAt = t
	}
	item.StartedAt = nullStringToTime(startedAt)
	item.CompletedAt = nullStringToTime(completedAt)
	item.ErrorMessage = errorMessage.String
	return &item, nil
}
