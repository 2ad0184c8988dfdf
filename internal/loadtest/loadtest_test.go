package loadtest

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCreateTestMirror(t *testing.T) {
	tm, err := CreateTestMirror(filepath.Join(t.TempDir(), "mirror.db"), 10, 3)
	if err != nil {
		t.Fatalf("CreateTestMirror() failed: %v", err)
	}
	defer tm.Close()

	if len(tm.AccountIDs) != 10 {
		t.Errorf("accounts = %d, want 10", len(tm.AccountIDs))
	}
	if len(tm.ContactIDs) != 30 {
		t.Errorf("contacts = %d, want 30", len(tm.ContactIDs))
	}
}

func TestRunConcurrentReaders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	tm, err := CreateTestMirror(filepath.Join(t.TempDir(), "mirror.db"), 20, 5)
	if err != nil {
		t.Fatalf("CreateTestMirror() failed: %v", err)
	}
	defer tm.Close()

	stats, err := tm.RunConcurrentReaders(20, 10)
	if err != nil {
		t.Fatalf("RunConcurrentReaders() failed: %v", err)
	}
	if stats.Errors != 0 {
		t.Errorf("errors = %d, want 0", stats.Errors)
	}
	if stats.TotalQueries != 200 {
		t.Errorf("TotalQueries = %d, want 200", stats.TotalQueries)
	}
	t.Logf("latency: %s", stats)
}

func TestVerifyReadersDuringWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	tm, err := CreateTestMirror(filepath.Join(t.TempDir(), "mirror.db"), 10, 2)
	if err != nil {
		t.Fatalf("CreateTestMirror() failed: %v", err)
	}
	defer tm.Close()

	if err := tm.VerifyReadersDuringWrites(8, 300*time.Millisecond); err != nil {
		t.Fatalf("VerifyReadersDuringWrites() failed: %v", err)
	}
}
