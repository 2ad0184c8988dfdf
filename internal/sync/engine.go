// Package sync pulls entity lists from the workspace system of record
// into the local mirror. Each entity type syncs independently: one
// table's fetch failure never blocks or poisons another's, and every
// pass ends by recording a per-type status row that downstream callers
// can read instead of grepping logs.
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/mapping"
	"github.com/calebmorris/prospector/internal/remote"
	"github.com/calebmorris/prospector/internal/schema"
)

// Result summarizes one entity type's sync pass.
type Result struct {
	EntityType schema.EntityType `json:"entity_type"`
	Fetched    int               `json:"fetched"`
	Upserted   int               `json:"upserted"`
	Conflicts  int               `json:"conflicts"`
	Status     schema.SyncState  `json:"status"`
	Duration   time.Duration     `json:"duration"`
	Err        error             `json:"-"`
}

// Syncer is the surface the daemon and CLI drive. Implementations must
// be safe for concurrent use.
type Syncer interface {
	// Sync pulls the given entity types (all types when none are given)
	// and returns one Result per type, in the order synced. A fetch
	// failure for one type is reported in its Result and recorded in
	// the mirror's sync_status table; it never aborts the other types.
	Sync(ctx context.Context, types ...schema.EntityType) []Result
}

// Config configures an Engine.
type Config struct {
	DB     *db.DB
	Client remote.Client
	// Mappings translates remote field names; defaults to the embedded
	// table.
	Mappings *mapping.Table
	Logger   *log.Logger
	// Notify, when set, is called with each completed Result. The
	// dashboard uses this to broadcast sync events.
	Notify func(Result)
}

// Engine is the production Syncer over a remote client and the mirror.
type Engine struct {
	db     *db.DB
	client remote.Client
	logger *log.Logger
	notify func(Result)

	mapMu    gosync.RWMutex
	mappings *mapping.Table

	// typeMu serializes passes per entity type. Passes for different
	// types run concurrently.
	typeMu map[schema.EntityType]*gosync.Mutex
}

// New creates a sync engine. DB and Client are required.
func New(cfg Config) (*Engine, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("sync: DB is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("sync: Client is required")
	}
	if cfg.Mappings == nil {
		cfg.Mappings = mapping.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	typeMu := make(map[schema.EntityType]*gosync.Mutex, len(schema.AllEntityTypes()))
	for _, et := range schema.AllEntityTypes() {
		typeMu[et] = &gosync.Mutex{}
	}
	return &Engine{
		db:       cfg.DB,
		client:   cfg.Client,
		logger:   cfg.Logger,
		notify:   cfg.Notify,
		mappings: cfg.Mappings,
		typeMu:   typeMu,
	}, nil
}

// UpdateMappings swaps the field-mapping table. Passes already running
// finish with the table they started with.
func (e *Engine) UpdateMappings(t *mapping.Table) {
	if t == nil {
		return
	}
	e.mapMu.Lock()
	e.mappings = t
	e.mapMu.Unlock()
}

func (e *Engine) currentMappings() *mapping.Table {
	e.mapMu.RLock()
	defer e.mapMu.RUnlock()
	return e.mappings
}

// Sync implements Syncer. Entity types run in parallel; results come
// back in argument order.
func (e *Engine) Sync(ctx context.Context, types ...schema.EntityType) []Result {
	if len(types) == 0 {
		types = schema.AllEntityTypes()
	}

	results := make([]Result, len(types))
	var wg gosync.WaitGroup
	for i, et := range types {
		wg.Add(1)
		go func(i int, et schema.EntityType) {
			defer wg.Done()
			results[i] = e.syncOne(ctx, et)
		}(i, et)
	}
	wg.Wait()

	for _, r := range results {
		if e.notify != nil {
			e.notify(r)
		}
	}
	return results
}

// syncOne runs a full pull for one entity type under its per-type lock.
func (e *Engine) syncOne(ctx context.Context, et schema.EntityType) Result {
	start := time.Now()
	result := Result{EntityType: et}

	if !schema.ValidEntityType(et) {
		result.Status = schema.SyncStateError
		result.Err = fmt.Errorf("unknown entity type %q", et)
		result.Duration = time.Since(start)
		return result
	}

	mu := e.typeMu[et]
	mu.Lock()
	defer mu.Unlock()

	records, err := e.client.Fetch(ctx, et)
	if err != nil {
		e.logger.Printf("fetch %s failed: %v", et, err)
		result.Status = schema.SyncStateError
		result.Err = err
		result.Duration = time.Since(start)
		e.recordFailure(ctx, et, err)
		return result
	}
	pulledAt := time.Now().UTC()
	result.Fetched = len(records)

	table := e.currentMappings()
	for _, rec := range records {
		if ctx.Err() != nil {
			e.logger.Printf("sync %s cancelled after %d/%d records", et, result.Upserted, len(records))
			result.Status = schema.SyncStateError
			result.Err = ctx.Err()
			result.Duration = time.Since(start)
			e.recordFailure(context.WithoutCancel(ctx), et, ctx.Err())
			return result
		}
		mapped, extra := table.Apply(et, rec)
		if err := e.upsertRecord(ctx, et, mapped, extra); err != nil {
			e.logger.Printf("skipping %s record: %v", et, err)
			result.Conflicts++
			continue
		}
		result.Upserted++
	}

	localCount, err := e.db.CountEntities(ctx, et)
	if err != nil {
		e.logger.Printf("count %s failed: %v", et, err)
	}

	status := &schema.SyncStatus{
		EntityType:        et,
		LastRemotePullAt:  &pulledAt,
		RemoteRecordCount: len(records),
		LocalRecordCount:  localCount,
		ConflictsDetected: result.Conflicts,
		Status:            schema.SyncStateSynced,
	}
	if result.Upserted > 0 {
		wroteAt := time.Now().UTC()
		status.LastLocalWriteAt = &wroteAt
	} else if prev, _ := e.db.GetSyncStatus(ctx, et); prev != nil {
		status.LastLocalWriteAt = prev.LastLocalWriteAt
	}
	if result.Conflicts > 0 {
		status.Status = schema.SyncStateDrift
		status.Message = fmt.Sprintf("%d record(s) skipped during the last pull", result.Conflicts)
	}
	if err := e.db.RecordSyncStatusContext(ctx, status); err != nil {
		e.logger.Printf("record %s status failed: %v", et, err)
	}

	result.Status = status.Status
	result.Duration = time.Since(start)
	e.logger.Printf("synced %s: fetched=%d upserted=%d conflicts=%d status=%s in %v",
		et, result.Fetched, result.Upserted, result.Conflicts, result.Status, result.Duration.Round(time.Millisecond))
	return result
}

// recordFailure writes an error status row while preserving the prior
// pull time and counts, so "last known good" stays visible next to the
// failure message.
func (e *Engine) recordFailure(ctx context.Context, et schema.EntityType, cause error) {
	status := &schema.SyncStatus{
		EntityType: et,
		Status:     schema.SyncStateError,
		Message:    cause.Error(),
	}
	if prev, err := e.db.GetSyncStatus(ctx, et); err == nil && prev != nil {
		status.LastRemotePullAt = prev.LastRemotePullAt
		status.LastLocalWriteAt = prev.LastLocalWriteAt
		status.RemoteRecordCount = prev.RemoteRecordCount
		status.LocalRecordCount = prev.LocalRecordCount
		status.ConflictsDetected = prev.ConflictsDetected
	}
	if err := e.db.RecordSyncStatusContext(ctx, status); err != nil {
		e.logger.Printf("record %s failure status failed: %v", et, err)
	}
}
