package queue

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/schema"
)

func testQueue(t *testing.T) (*Queue, string) {
	t.Helper()
	database, err := db.Open(t.TempDir() + "/mirror.db")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	accountID, err := database.UpsertAccount(&schema.Account{RemoteID: "acc_1", Name: "Acme"})
	if err != nil {
		t.Fatalf("UpsertAccount() failed: %v", err)
	}

	q, err := New(database, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return q, accountID
}

func TestEnqueue_ResolvesAccountName(t *testing.T) {
	q, accountID := testQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, accountID, []string{"discovery", "scoring"}, 5)
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	item, err := q.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item.AccountName != "Acme" {
		t.Errorf("AccountName = %q, want Acme", item.AccountName)
	}
	if item.Status != schema.QueueStatusQueued || item.Priority != 5 {
		t.Errorf("item = %+v", item)
	}
}

func TestEnqueue_UnknownAccount(t *testing.T) {
	q, _ := testQueue(t)

	if _, err := q.Enqueue(context.Background(), "no-such-account", []string{"discovery"}, 1); err == nil {
		t.Error("Enqueue() for unknown account succeeded")
	}
}

func TestQueue_NotifiesOnEveryTransition(t *testing.T) {
	q, accountID := testQueue(t)
	ctx := context.Background()

	var seen []schema.QueueStatus
	q.NotifyUpdates(func(item *schema.ResearchQueueItem) {
		seen = append(seen, item.Status)
	})

	id, err := q.Enqueue(ctx, accountID, []string{"discovery"}, 1)
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := q.MarkStarted(ctx, id); err != nil {
		t.Fatalf("MarkStarted() failed: %v", err)
	}
	if err := q.MarkProgress(ctx, id, 50, "discovery"); err != nil {
		t.Fatalf("MarkProgress() failed: %v", err)
	}
	if err := q.MarkCompleted(ctx, id); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}

	want := []schema.QueueStatus{
		schema.QueueStatusQueued,
		schema.QueueStatusActive,
		schema.QueueStatusActive,
		schema.QueueStatusCompleted,
	}
	if len(seen) != len(want) {
		t.Fatalf("hook fired %d times, want %d (%v)", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestQueue_WorkflowRoundTrip(t *testing.T) {
	q, accountID := testQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, accountID, []string{"discovery", "enrichment"}, 3)
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	if err := q.MarkStarted(ctx, id); err != nil {
		t.Fatalf("MarkStarted() failed: %v", err)
	}
	if err := q.MarkProgress(ctx, id, 50, "enrichment"); err != nil {
		t.Fatalf("MarkProgress() failed: %v", err)
	}

	active, err := q.ListByStatus(ctx, schema.QueueStatusActive)
	if err != nil {
		t.Fatalf("ListByStatus() failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != id {
		t.Errorf("active = %+v", active)
	}

	if err := q.MarkCompleted(ctx, id); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	item, _ := q.Get(ctx, id)
	if item.Status != schema.QueueStatusCompleted || item.ProgressPercentage != 100 {
		t.Errorf("completed item = %+v", item)
	}
}
