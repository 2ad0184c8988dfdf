package db

import (
	"context"
	"testing"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

func TestRecordSyncStatus_UpsertByEntityType(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	pull := time.Now().UTC().Truncate(time.Second)
	first := &schema.SyncStatus{
		EntityType:        schema.EntityContacts,
		LastRemotePullAt:  &pull,
		RemoteRecordCount: 10,
		LocalRecordCount:  10,
		Status:            schema.SyncStateSynced,
	}
	if err := db.RecordSyncStatusContext(ctx, first); err != nil {
		t.Fatalf("RecordSyncStatus() failed: %v", err)
	}

	// Replacing the row for the same entity type keeps one row
	second := &schema.SyncStatus{
		EntityType:        schema.EntityContacts,
		RemoteRecordCount: 12,
		LocalRecordCount:  12,
		ConflictsDetected: 2,
		Status:            schema.SyncStateDrift,
	}
	if err := db.RecordSyncStatusContext(ctx, second); err != nil {
		t.Fatalf("Second RecordSyncStatus() failed: %v", err)
	}

	statuses, err := db.GetSyncStatuses(ctx)
	if err != nil {
		t.Fatalf("GetSyncStatuses() failed: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("got %d status rows, want 1", len(statuses))
	}
	got := statuses[0]
	if got.Status != schema.SyncStateDrift {
		t.Errorf("Status = %q, want drift", got.Status)
	}
	if got.RemoteRecordCount != 12 || got.ConflictsDetected != 2 {
		t.Errorf("counts = (%d, %d), want (12, 2)", got.RemoteRecordCount, got.ConflictsDetected)
	}
}

func TestGetSyncStatus_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	pull := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	write := pull.Add(2 * time.Second)
	in := &schema.SyncStatus{
		EntityType:        schema.EntityAccounts,
		LastRemotePullAt:  &pull,
		LastLocalWriteAt:  &write,
		RemoteRecordCount: 42,
		LocalRecordCount:  42,
		Status:            schema.SyncStateSynced,
	}
	if err := db.RecordSyncStatusContext(ctx, in); err != nil {
		t.Fatalf("RecordSyncStatus() failed: %v", err)
	}

	got, err := db.GetSyncStatus(ctx, schema.EntityAccounts)
	if err != nil {
		t.Fatalf("GetSyncStatus() failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSyncStatus() returned nil for recorded entity type")
	}
	if got.LastRemotePullAt == nil || !got.LastRemotePullAt.Equal(pull) {
		t.Errorf("LastRemotePullAt = %v, want %v", got.LastRemotePullAt, pull)
	}
	if got.LastLocalWriteAt == nil || !got.LastLocalWriteAt.Equal(write) {
		t.Errorf("LastLocalWriteAt = %v, want %v", got.LastLocalWriteAt, write)
	}
}

func TestGetSyncStatus_NeverSynced(t *testing.T) {
	db := testDB(t)

	got, err := db.GetSyncStatus(context.Background(), schema.EntityPartnerships)
	if err != nil {
		t.Fatalf("GetSyncStatus() failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetSyncStatus() = %+v, want nil for never-synced type", got)
	}
}

func TestRecordSyncStatus_ErrorWithMessage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	in := &schema.SyncStatus{
		EntityType: schema.EntityTimelineEvents,
		Status:     schema.SyncStateError,
		Message:    "fetch timeline_events: network timeout",
	}
	if err := db.RecordSyncStatusContext(ctx, in); err != nil {
		t.Fatalf("RecordSyncStatus() failed: %v", err)
	}

	got, err := db.GetSyncStatus(ctx, schema.EntityTimelineEvents)
	if err != nil {
		t.Fatalf("GetSyncStatus() failed: %v", err)
	}
	if got.Status != schema.SyncStateError || got.Message == "" {
		t.Errorf("status = (%q, %q), want error with message", got.Status, got.Message)
	}
}
