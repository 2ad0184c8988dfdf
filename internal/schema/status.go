package schema

import "time"

// SyncState is the per-entity-type health of the last sync pass.
type SyncState string

const (
	// SyncStateSynced means the last pull succeeded with no conflicts.
	SyncStateSynced SyncState = "synced"
	// SyncStateDrift means the last pull succeeded but some records could
	// not be mapped or stored cleanly.
	SyncStateDrift SyncState = "drift"
	// SyncStateError means the pull itself failed (network, auth,
	// malformed response). The mirror retains its previous contents.
	SyncStateError SyncState = "error"
)

// SyncStatus is one row of the sync_status table: the single source of
// truth for "does this entity type need attention".
type SyncStatus struct {
	EntityType        EntityType `json:"entity_type" yaml:"entity_type"`
	LastRemotePullAt  *time.Time `json:"last_remote_pull_at,omitempty" yaml:"last_remote_pull_at,omitempty"`
	LastLocalWriteAt  *time.Time `json:"last_local_write_at,omitempty" yaml:"last_local_write_at,omitempty"`
	RemoteRecordCount int        `json:"remote_record_count" yaml:"remote_record_count"`
	LocalRecordCount  int        `json:"local_record_count" yaml:"local_record_count"`
	ConflictsDetected int        `json:"conflicts_detected" yaml:"conflicts_detected"`
	Status            SyncState  `json:"status" yaml:"status"`

	// Message carries the failure detail when Status is error.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
