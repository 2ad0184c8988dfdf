// Package daemon runs the background sync loop.
//
// The daemon:
// 1. Pulls all entity types from the system of record on a fixed interval
// 2. Retries after a shorter backoff when a pass fails
// 3. Hot-reloads the field-mapping table when its override file changes
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/calebmorris/prospector/internal/mapping"
	"github.com/calebmorris/prospector/internal/schema"
	syncengine "github.com/calebmorris/prospector/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often a full pull runs (default: 5m).
	SyncInterval time.Duration

	// RetryBackoff is how long to wait after a failed pass before the
	// next attempt (default: 30s). Must be shorter than SyncInterval to
	// be useful.
	RetryBackoff time.Duration

	// MappingPath, when set, is a mapping override file watched for
	// changes and hot-reloaded into the engine.
	MappingPath string

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval: 5 * time.Minute,
		RetryBackoff: 30 * time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// mappingUpdater is the slice of the sync engine the daemon needs for
// hot reload.
type mappingUpdater interface {
	UpdateMappings(*mapping.Table)
}

// Daemon drives periodic sync passes.
type Daemon struct {
	syncer syncengine.Syncer
	config *Config

	// updater is non-nil when the syncer supports mapping hot reload.
	updater mappingUpdater
}

// New creates a daemon over a syncer. When the syncer also supports
// mapping updates (the production engine does) and MappingPath is set,
// the daemon hot-reloads mappings on file change.
func New(syncer syncengine.Syncer, config *Config) (*Daemon, error) {
	if syncer == nil {
		return nil, fmt.Errorf("daemon: syncer is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = 5 * time.Minute
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	d := &Daemon{syncer: syncer, config: config}
	if u, ok := syncer.(mappingUpdater); ok {
		d.updater = u
	}
	return d, nil
}

// Run blocks, syncing on the configured interval until ctx is
// cancelled. A failed pass shortens the wait to RetryBackoff; the loop
// itself never terminates on sync failure.
func (d *Daemon) Run(ctx context.Context) error {
	d.config.Logger.Printf("Starting sync loop (interval %v, backoff %v)",
		d.config.SyncInterval, d.config.RetryBackoff)

	if d.config.MappingPath != "" && d.updater != nil {
		stop, err := d.watchMappings(ctx)
		if err != nil {
			// Hot reload is a convenience; a broken watch must not stop
			// the sync loop.
			d.config.Logger.Printf("mapping watch disabled: %v", err)
		} else {
			defer stop()
		}
	}

	timer := time.NewTimer(0) // first pass immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("Sync loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		wait := d.config.SyncInterval
		if failed := d.runPass(ctx); failed {
			wait = d.config.RetryBackoff
			d.config.Logger.Printf("Pass had failures, retrying in %v", wait)
		}
		timer.Reset(wait)
	}
}

// runPass syncs all entity types once. Returns true when any type
// failed.
func (d *Daemon) runPass(ctx context.Context) bool {
	results := d.syncer.Sync(ctx)

	failed := false
	for _, r := range results {
		if r.Status == schema.SyncStateError {
			failed = true
		}
	}
	return failed
}

// watchMappings hot-reloads the mapping override file on change. The
// returned stop function closes the watcher.
func (d *Daemon) watchMappings(ctx context.Context) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(d.config.MappingPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", d.config.MappingPath, err)
	}

	target := filepath.Clean(d.config.MappingPath)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				d.reloadMappings()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.config.Logger.Printf("mapping watch error: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

func (d *Daemon) reloadMappings() {
	table, err := mapping.LoadFile(d.config.MappingPath)
	if err != nil {
		d.config.Logger.Printf("mapping reload failed, keeping current table: %v", err)
		return
	}
	d.updater.UpdateMappings(table)
	d.config.Logger.Printf("reloaded field mappings from %s", d.config.MappingPath)
}
