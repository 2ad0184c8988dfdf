package db

import (
	"context"
	"testing"

	"github.com/calebmorris/prospector/internal/schema"
)

func enqueueTestItem(t *testing.T, db *DB, name string, priority int) string {
	t.Helper()
	id, err := db.InsertQueueItem(context.Background(), &schema.ResearchQueueItem{
		AccountLocalID: "acc-" + name,
		AccountName:    name,
		Phases:         []string{"discovery", "enrichment", "scoring"},
		Status:         schema.QueueStatusQueued,
		Priority:       priority,
	})
	if err != nil {
		t.Fatalf("InsertQueueItem(%s) failed: %v", name, err)
	}
	return id
}

func TestQueueLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := enqueueTestItem(t, db, "Acme", 5)

	item, err := db.GetQueueItem(ctx, id)
	if err != nil {
		t.Fatalf("GetQueueItem() failed: %v", err)
	}
	if item.Status != schema.QueueStatusQueued {
		t.Errorf("new item status = %q, want queued", item.Status)
	}
	if item.StartedAt != nil || item.CompletedAt != nil {
		t.Error("new item has started/completed timestamps")
	}

	if err := db.MarkQueueStarted(ctx, id); err != nil {
		t.Fatalf("MarkQueueStarted() failed: %v", err)
	}
	if err := db.MarkQueueProgress(ctx, id, 40, "enrichment"); err != nil {
		t.Fatalf("MarkQueueProgress() failed: %v", err)
	}

	item, _ = db.GetQueueItem(ctx, id)
	if item.Status != schema.QueueStatusActive || item.ProgressPercentage != 40 || item.CurrentPhase != "enrichment" {
		t.Errorf("active item = %+v", item)
	}
	if item.StartedAt == nil {
		t.Error("started_at not set after MarkQueueStarted")
	}

	if err := db.MarkQueueCompleted(ctx, id); err != nil {
		t.Fatalf("MarkQueueCompleted() failed: %v", err)
	}
	item, _ = db.GetQueueItem(ctx, id)
	if item.Status != schema.QueueStatusCompleted || item.ProgressPercentage != 100 {
		t.Errorf("completed item = %+v", item)
	}
	if item.CompletedAt == nil {
		t.Error("completed_at not set after MarkQueueCompleted")
	}
}

func TestQueueFailure(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := enqueueTestItem(t, db, "Globex", 1)
	if err := db.MarkQueueStarted(ctx, id); err != nil {
		t.Fatalf("MarkQueueStarted() failed: %v", err)
	}
	if err := db.MarkQueueFailed(ctx, id, "provider quota exhausted"); err != nil {
		t.Fatalf("MarkQueueFailed() failed: %v", err)
	}

	item, err := db.GetQueueItem(ctx, id)
	if err != nil {
		t.Fatalf("GetQueueItem() failed: %v", err)
	}
	if item.Status != schema.QueueStatusFailed || item.ErrorMessage != "provider quota exhausted" {
		t.Errorf("failed item = %+v", item)
	}
}

func TestQueueInvalidTransitions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id := enqueueTestItem(t, db, "Initech", 0)

	// Completing a queued (not active) item is rejected
	if err := db.MarkQueueCompleted(ctx, id); err == nil {
		t.Error("MarkQueueCompleted() on queued item succeeded")
	}
	// Starting twice is rejected
	if err := db.MarkQueueStarted(ctx, id); err != nil {
		t.Fatalf("MarkQueueStarted() failed: %v", err)
	}
	if err := db.MarkQueueStarted(ctx, id); err == nil {
		t.Error("second MarkQueueStarted() succeeded")
	}
	// Unknown id is rejected
	if err := db.MarkQueueStarted(ctx, "no-such-id"); err == nil {
		t.Error("MarkQueueStarted() on unknown id succeeded")
	}
	// Out-of-range progress is rejected
	if err := db.MarkQueueProgress(ctx, id, 150, "scoring"); err == nil {
		t.Error("MarkQueueProgress(150) succeeded")
	}
}

func TestListQueueByStatus_PriorityOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	enqueueTestItem(t, db, "LowPrio", 1)
	enqueueTestItem(t, db, "HighPrio", 9)
	enqueueTestItem(t, db, "MidPrio", 5)

	items, err := db.ListQueueByStatus(ctx, schema.QueueStatusQueued)
	if err != nil {
		t.Fatalf("ListQueueByStatus() failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].AccountName != "HighPrio" || items[2].AccountName != "LowPrio" {
		t.Errorf("queue order = [%s %s %s], want highest priority first",
			items[0].AccountName, items[1].AccountName, items[2].AccountName)
	}

	if _, err := db.ListQueueByStatus(ctx, "paused"); err == nil {
		t.Error("ListQueueByStatus() accepted an invalid status")
	}
}
