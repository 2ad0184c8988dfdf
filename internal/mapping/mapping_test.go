package mapping

import (
	"testing"

	"github.com/calebmorris/prospector/internal/schema"
)

func TestDefault(t *testing.T) {
	table := Default()
	if table.Version != 1 {
		t.Errorf("Version = %d, want 1", table.Version)
	}

	// Every entity type must map the remote identifier and timestamp.
	for _, et := range schema.AllEntityTypes() {
		if local, ok := table.LocalField(et, "id"); !ok || local != "remote_id" {
			t.Errorf("%s: id mapped to (%q, %v), want (remote_id, true)", et, local, ok)
		}
		if local, ok := table.LocalField(et, "updated_at"); !ok || local != "remote_last_modified_at" {
			t.Errorf("%s: updated_at mapped to (%q, %v), want (remote_last_modified_at, true)", et, local, ok)
		}
	}
}

func TestApply_UnmappedFieldsPreserved(t *testing.T) {
	table := Default()
	rec := map[string]any{
		"id":            "rec_123",
		"email_address": "jane@realcorp.com",
		"Twitter Handle": "@jane",
		"customScore%":  float64(9),
	}

	mapped, extra := table.Apply(schema.EntityContacts, rec)

	if mapped["remote_id"] != "rec_123" {
		t.Errorf("mapped[remote_id] = %v, want rec_123", mapped["remote_id"])
	}
	if mapped["email"] != "jane@realcorp.com" {
		t.Errorf("mapped[email] = %v, want jane@realcorp.com", mapped["email"])
	}

	// Unmapped fields land in extra under normalized names, never dropped.
	if extra["twitter_handle"] != "@jane" {
		t.Errorf("extra[twitter_handle] = %v, want @jane", extra["twitter_handle"])
	}
	if extra["customscore"] != float64(9) {
		t.Errorf("extra[customscore] = %v, want 9", extra["customscore"])
	}
}

func TestParse_RejectsUnsupportedVersion(t *testing.T) {
	if _, err := Parse([]byte("version = 0\n")); err == nil {
		t.Error("Parse() accepted version 0")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/mappings.toml"); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Twitter Handle", "twitter_handle"},
		{"ARR (USD)", "arr_usd"},
		{"already_snake", "already_snake"},
		{"  Spaced  Out  ", "spaced_out"},
		{"UPPER", "upper"},
		{"trailing!", "trailing"},
	}
	for _, tt := range tests {
		if got := NormalizeFieldName(tt.in); got != tt.want {
			t.Errorf("NormalizeFieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
