package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

func TestUpsertContact_Insert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	localID, err := db.UpsertContactContext(ctx, &schema.Contact{
		RemoteID:  "rec_1",
		FullName:  "Jane Doe",
		Email:     "jane@realcorp.com",
		Title:     "Director of Infrastructure Engineering",
		LeadScore: 74,
		Extra:     map[string]any{"twitter_handle": "@jane"},
	})
	if err != nil {
		t.Fatalf("UpsertContact() failed: %v", err)
	}
	if localID == "" {
		t.Fatal("UpsertContact() returned empty local id")
	}

	got, err := db.GetContactByRemoteID(ctx, "rec_1")
	if err != nil {
		t.Fatalf("GetContactByRemoteID() failed: %v", err)
	}
	if got.LocalID != localID {
		t.Errorf("LocalID = %q, want %q", got.LocalID, localID)
	}
	if got.Email != "jane@realcorp.com" {
		t.Errorf("Email = %q, want jane@realcorp.com", got.Email)
	}
	if got.Extra["twitter_handle"] != "@jane" {
		t.Errorf("Extra[twitter_handle] = %v, want @jane", got.Extra["twitter_handle"])
	}
	if got.CreatedAt.IsZero() || got.LastUpdatedAt.IsZero() {
		t.Error("timestamps were not set on insert")
	}
}

func TestUpsertContact_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	contact := &schema.Contact{
		RemoteID: "rec_1",
		FullName: "Jane Doe",
		Email:    "jane@realcorp.com",
	}

	first, err := db.UpsertContactContext(ctx, contact)
	if err != nil {
		t.Fatalf("First UpsertContact() failed: %v", err)
	}
	second, err := db.UpsertContactContext(ctx, contact)
	if err != nil {
		t.Fatalf("Second UpsertContact() failed: %v", err)
	}

	// local_id is stable across repeated upserts of the same remote_id
	if first != second {
		t.Errorf("local id changed across upserts: %q then %q", first, second)
	}

	// Still exactly one row for this remote id
	count, err := db.CountEntities(ctx, schema.EntityContacts)
	if err != nil {
		t.Fatalf("CountEntities() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("contact count = %d, want 1", count)
	}

	got, err := db.GetContactByRemoteID(ctx, "rec_1")
	if err != nil {
		t.Fatalf("GetContactByRemoteID() failed: %v", err)
	}
	if got.FullName != "Jane Doe" || got.Email != "jane@realcorp.com" {
		t.Errorf("stored fields drifted after repeated upsert: %+v", got)
	}
}

func TestUpsertContact_UpdatePreservesCreatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	localID, err := db.UpsertContactContext(ctx, &schema.Contact{RemoteID: "rec_1", FullName: "Jane"})
	if err != nil {
		t.Fatalf("UpsertContact() failed: %v", err)
	}
	before, err := db.GetContactByLocalID(ctx, localID)
	if err != nil {
		t.Fatalf("GetContactByLocalID() failed: %v", err)
	}

	if _, err := db.UpsertContactContext(ctx, &schema.Contact{
		RemoteID: "rec_1",
		FullName: "Jane Doe",
		Title:    "VP Engineering",
	}); err != nil {
		t.Fatalf("Update UpsertContact() failed: %v", err)
	}

	after, err := db.GetContactByLocalID(ctx, localID)
	if err != nil {
		t.Fatalf("GetContactByLocalID() failed: %v", err)
	}

	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed on update: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
	if after.FullName != "Jane Doe" || after.Title != "VP Engineering" {
		t.Errorf("update not applied: %+v", after)
	}
	if after.LastUpdatedAt.Before(before.LastUpdatedAt) {
		t.Error("last_updated_at went backwards")
	}
}

func TestUpsertContact_NoRemoteIDAlwaysInserts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, err := db.UpsertContactContext(ctx, &schema.Contact{FullName: "Local Only"})
	if err != nil {
		t.Fatalf("UpsertContact() failed: %v", err)
	}
	b, err := db.UpsertContactContext(ctx, &schema.Contact{FullName: "Local Only"})
	if err != nil {
		t.Fatalf("UpsertContact() failed: %v", err)
	}
	if a == b {
		t.Error("uncorrelated contacts shared a local id")
	}

	count, _ := db.CountEntities(ctx, schema.EntityContacts)
	if count != 2 {
		t.Errorf("contact count = %d, want 2", count)
	}
}

func TestFindContactByEmail(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.UpsertContactContext(ctx, &schema.Contact{
		RemoteID: "rec_1",
		Email:    "Jane@RealCorp.com",
	}); err != nil {
		t.Fatalf("UpsertContact() failed: %v", err)
	}

	got, err := db.FindContactByEmail(ctx, "jane@realcorp.com")
	if err != nil {
		t.Fatalf("FindContactByEmail() failed: %v", err)
	}
	if got.RemoteID != "rec_1" {
		t.Errorf("RemoteID = %q, want rec_1", got.RemoteID)
	}

	if _, err := db.FindContactByEmail(ctx, "nobody@realcorp.com"); err != sql.ErrNoRows {
		t.Errorf("FindContactByEmail(miss) error = %v, want sql.ErrNoRows", err)
	}
}

func TestListContacts_Filters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	accountID, err := db.UpsertAccountContext(ctx, &schema.Account{RemoteID: "acc_1", Name: "Acme"})
	if err != nil {
		t.Fatalf("UpsertAccount() failed: %v", err)
	}

	contacts := []*schema.Contact{
		{RemoteID: "rec_1", AccountLocalID: accountID, FullName: "High Score", LeadScore: 90, QualityScore: 80},
		{RemoteID: "rec_2", AccountLocalID: accountID, FullName: "Low Score", LeadScore: 20, QualityScore: 30},
		{RemoteID: "rec_3", FullName: "Other Account", LeadScore: 55},
	}
	for _, c := range contacts {
		if _, err := db.UpsertContactContext(ctx, c); err != nil {
			t.Fatalf("UpsertContact(%s) failed: %v", c.RemoteID, err)
		}
	}

	t.Run("ByAccount", func(t *testing.T) {
		got, err := db.ListContacts(ctx, ContactFilter{AccountLocalID: accountID})
		if err != nil {
			t.Fatalf("ListContacts() failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d contacts, want 2", len(got))
		}
		// Default order: lead score descending
		if got[0].FullName != "High Score" {
			t.Errorf("first contact = %q, want High Score", got[0].FullName)
		}
	})

	t.Run("MinLeadScore", func(t *testing.T) {
		got, err := db.ListContacts(ctx, ContactFilter{MinLeadScore: 50})
		if err != nil {
			t.Fatalf("ListContacts() failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d contacts, want 2", len(got))
		}
	})

	t.Run("MinQualityScore", func(t *testing.T) {
		got, err := db.ListContacts(ctx, ContactFilter{MinQualityScore: 50})
		if err != nil {
			t.Fatalf("ListContacts() failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("got %d contacts, want 1", len(got))
		}
	})

	t.Run("UpdatedSince", func(t *testing.T) {
		got, err := db.ListContacts(ctx, ContactFilter{UpdatedSince: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatalf("ListContacts() failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d contacts, want 0 for future cutoff", len(got))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		got, err := db.ListContacts(ctx, ContactFilter{Limit: 1})
		if err != nil {
			t.Fatalf("ListContacts() failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("got %d contacts, want 1", len(got))
		}
	})
}

func TestListAccounts_Filters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	accounts := []*schema.Account{
		{RemoteID: "acc_1", Name: "Acme Robotics", Domain: "acme.io", Industry: "robotics", LeadScore: 80, Status: "target"},
		{RemoteID: "acc_2", Name: "Globex", Domain: "globex.com", Industry: "logistics", LeadScore: 40, Status: "watch"},
	}
	for _, a := range accounts {
		if _, err := db.UpsertAccountContext(ctx, a); err != nil {
			t.Fatalf("UpsertAccount(%s) failed: %v", a.RemoteID, err)
		}
	}

	got, err := db.ListAccounts(ctx, AccountFilter{NameContains: "acme"})
	if err != nil {
		t.Fatalf("ListAccounts() failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Acme Robotics" {
		t.Errorf("NameContains filter returned %+v", got)
	}

	got, err = db.ListAccounts(ctx, AccountFilter{MinLeadScore: 50})
	if err != nil {
		t.Fatalf("ListAccounts() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("MinLeadScore filter returned %d accounts, want 1", len(got))
	}
}

func TestUpsertTimelineEventAndPartnership(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	accountID, err := db.UpsertAccountContext(ctx, &schema.Account{RemoteID: "acc_1", Name: "Acme"})
	if err != nil {
		t.Fatalf("UpsertAccount() failed: %v", err)
	}

	occurred := time.Now().UTC().Truncate(time.Second)
	eventID, err := db.UpsertTimelineEventContext(ctx, &schema.TimelineEvent{
		RemoteID:       "evt_1",
		AccountLocalID: accountID,
		EventType:      "funding_round",
		Title:          "Series B announced",
		OccurredAt:     &occurred,
	})
	if err != nil {
		t.Fatalf("UpsertTimelineEvent() failed: %v", err)
	}

	// Re-upsert keeps the same row
	eventID2, err := db.UpsertTimelineEventContext(ctx, &schema.TimelineEvent{
		RemoteID: "evt_1",
		Title:    "Series B announced (updated)",
	})
	if err != nil {
		t.Fatalf("Second UpsertTimelineEvent() failed: %v", err)
	}
	if eventID != eventID2 {
		t.Errorf("event local id changed across upserts")
	}

	events, err := db.ListTimelineEvents(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListTimelineEvents() failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Series B announced (updated)" {
		t.Errorf("events = %+v", events)
	}

	if _, err := db.UpsertPartnershipContext(ctx, &schema.Partnership{
		RemoteID:       "par_1",
		AccountLocalID: accountID,
		PartnerName:    "CloudCo",
		Category:       "technology",
		Strength:       0.8,
	}); err != nil {
		t.Fatalf("UpsertPartnership() failed: %v", err)
	}

	partnerships, err := db.ListPartnerships(ctx, accountID, 0)
	if err != nil {
		t.Fatalf("ListPartnerships() failed: %v", err)
	}
	if len(partnerships) != 1 || partnerships[0].PartnerName != "CloudCo" {
		t.Errorf("partnerships = %+v", partnerships)
	}
}
