package schema

import (
	"fmt"
	"time"
)

// QueueStatus is the lifecycle state of a research queue item.
type QueueStatus string

const (
	// QueueStatusQueued means the item is waiting for a worker.
	QueueStatusQueued QueueStatus = "queued"
	// QueueStatusActive means a worker has picked the item up.
	QueueStatusActive QueueStatus = "active"
	// QueueStatusCompleted is the successful terminal state.
	QueueStatusCompleted QueueStatus = "completed"
	// QueueStatusFailed is the failed terminal state.
	QueueStatusFailed QueueStatus = "failed"
)

// ValidQueueStatus reports whether s is a known queue status.
func ValidQueueStatus(s QueueStatus) bool {
	switch s {
	case QueueStatusQueued, QueueStatusActive, QueueStatusCompleted, QueueStatusFailed:
		return true
	}
	return false
}

// ResearchQueueItem is local-only workflow state for enrichment jobs.
// It never round-trips to the external system of record.
type ResearchQueueItem struct {
	ID             string      `json:"id"`
	AccountLocalID string      `json:"account_local_id"`
	AccountName    string      `json:"account_name"`
	Phases         []string    `json:"phases"`
	CurrentPhase   string      `json:"current_phase,omitempty"`
	Status         QueueStatus `json:"status"`
	Priority       int         `json:"priority"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ProgressPercentage int    `json:"progress_percentage"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// Validate checks field values before the item is persisted.
func (q *ResearchQueueItem) Validate() error {
	if q.AccountLocalID == "" {
		return fmt.Errorf("account_local_id is required")
	}
	if q.AccountName == "" {
		return fmt.Errorf("account_name is required")
	}
	if len(q.Phases) == 0 {
		return fmt.Errorf("at least one phase is required")
	}
	if !ValidQueueStatus(q.Status) {
		return fmt.Errorf("invalid status %q", q.Status)
	}
	if q.ProgressPercentage < 0 || q.ProgressPercentage > 100 {
		return fmt.Errorf("progress_percentage must be between 0 and 100 (got %d)", q.ProgressPercentage)
	}
	return nil
}
