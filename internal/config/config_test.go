package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir changes the working directory for the duration of the test.
// Equivalent to t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no stray prospector.yaml is found.
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("Sync.Interval = %v, want 5m", cfg.Sync.Interval)
	}
	if cfg.Sync.Backoff != 30*time.Second {
		t.Errorf("Sync.Backoff = %v, want 30s", cfg.Sync.Backoff)
	}
	if cfg.Remote.MinRequestInterval != 250*time.Millisecond {
		t.Errorf("Remote.MinRequestInterval = %v, want 250ms", cfg.Remote.MinRequestInterval)
	}
	if cfg.DB.Path == "" {
		t.Error("DB.Path default is empty")
	}
	if cfg.Dashboard.Addr != ":8087" {
		t.Errorf("Dashboard.Addr = %q, want :8087", cfg.Dashboard.Addr)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prospector.yaml")
	body := `
remote:
  base_url: https://api.workspace.example
  api_token: secret
  min_request_interval: 1s
sync:
  interval: 2m
db:
  path: /tmp/custom.db
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://api.workspace.example" || cfg.Remote.APIToken != "secret" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Remote.MinRequestInterval != time.Second {
		t.Errorf("MinRequestInterval = %v, want 1s", cfg.Remote.MinRequestInterval)
	}
	if cfg.Sync.Interval != 2*time.Minute {
		t.Errorf("Sync.Interval = %v, want 2m", cfg.Sync.Interval)
	}
	if cfg.DB.Path != "/tmp/custom.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	// Unset keys keep their defaults.
	if cfg.Sync.Backoff != 30*time.Second {
		t.Errorf("Sync.Backoff = %v, want default 30s", cfg.Sync.Backoff)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PROSPECTOR_REMOTE_API_TOKEN", "env-token")
	t.Setenv("PROSPECTOR_SYNC_INTERVAL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Remote.APIToken != "env-token" {
		t.Errorf("APIToken = %q, want env value", cfg.Remote.APIToken)
	}
	if cfg.Sync.Interval != 90*time.Second {
		t.Errorf("Sync.Interval = %v, want 90s", cfg.Sync.Interval)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with missing explicit file succeeded")
	}
}
