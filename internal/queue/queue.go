// Package queue coordinates local research work per account. Items move
// queued -> active -> completed (or failed); the store enforces the
// transitions, this layer adds validation and logging. The queue never
// participates in the sync engine's pull cycle.
package queue

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/schema"
)

// Queue is the research workflow queue over the local mirror store.
type Queue struct {
	db     *db.DB
	logger *log.Logger

	// notify, when set, receives the item after every state change.
	notify func(*schema.ResearchQueueItem)
}

// New creates a queue over the mirror store.
func New(database *db.DB, logger *log.Logger) (*Queue, error) {
	if database == nil {
		return nil, fmt.Errorf("queue: db is required")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[queue] ", log.LstdFlags)
	}
	return &Queue{db: database, logger: logger}, nil
}

// NotifyUpdates registers fn to receive the stored item after every
// state change. The dashboard publisher hooks in here.
func (q *Queue) NotifyUpdates(fn func(*schema.ResearchQueueItem)) {
	q.notify = fn
}

// notifyItem reloads the item and hands it to the update hook.
func (q *Queue) notifyItem(ctx context.Context, id string) {
	if q.notify == nil {
		return
	}
	item, err := q.db.GetQueueItem(ctx, id)
	if err != nil {
		q.logger.Printf("notify %s: %v", id, err)
		return
	}
	q.notify(item)
}

// Enqueue creates a queued research item for an account. The account
// must exist in the mirror.
func (q *Queue) Enqueue(ctx context.Context, accountLocalID string, phases []string, priority int) (string, error) {
	account, err := q.db.GetAccountByLocalID(ctx, accountLocalID)
	if err != nil {
		return "", fmt.Errorf("enqueue: account %s: %w", accountLocalID, err)
	}

	id, err := q.db.InsertQueueItem(ctx, &schema.ResearchQueueItem{
		AccountLocalID: accountLocalID,
		AccountName:    account.Name,
		Phases:         phases,
		Status:         schema.QueueStatusQueued,
		Priority:       priority,
	})
	if err != nil {
		return "", err
	}
	q.logger.Printf("enqueued %s for %q (priority %d, %d phases)", id, account.Name, priority, len(phases))
	q.notifyItem(ctx, id)
	return id, nil
}

// ListByStatus returns items in working order: highest priority first,
// oldest first within a priority.
func (q *Queue) ListByStatus(ctx context.Context, status schema.QueueStatus) ([]*schema.ResearchQueueItem, error) {
	return q.db.ListQueueByStatus(ctx, status)
}

// Get returns one item by id.
func (q *Queue) Get(ctx context.Context, id string) (*schema.ResearchQueueItem, error) {
	return q.db.GetQueueItem(ctx, id)
}

// MarkStarted moves a queued item to active.
func (q *Queue) MarkStarted(ctx context.Context, id string) error {
	if err := q.db.MarkQueueStarted(ctx, id); err != nil {
		return err
	}
	q.logger.Printf("started %s", id)
	q.notifyItem(ctx, id)
	return nil
}

// MarkProgress updates an active item's progress and current phase.
func (q *Queue) MarkProgress(ctx context.Context, id string, percentage int, currentPhase string) error {
	if err := q.db.MarkQueueProgress(ctx, id, percentage, currentPhase); err != nil {
		return err
	}
	q.notifyItem(ctx, id)
	return nil
}

// MarkCompleted moves an active item to completed at 100%.
func (q *Queue) MarkCompleted(ctx context.Context, id string) error {
	if err := q.db.MarkQueueCompleted(ctx, id); err != nil {
		return err
	}
	q.logger.Printf("completed %s", id)
	q.notifyItem(ctx, id)
	return nil
}

// MarkFailed moves an active item to failed with an error message.
func (q *Queue) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	if err := q.db.MarkQueueFailed(ctx, id, errorMessage); err != nil {
		return err
	}
	q.logger.Printf("failed %s: %s", id, errorMessage)
	q.notifyItem(ctx, id)
	return nil
}
