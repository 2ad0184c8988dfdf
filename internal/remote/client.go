// Package remote defines the client boundary to the external workspace
// system of record.
//
// The sync engine depends on this boundary in two ways: fetches return
// records in remote order, and failures surface as typed errors so that
// "zero records" and "fetch failed" are never confused.
package remote

import (
	"context"

	"github.com/calebmorris/prospector/internal/schema"
)

// Record is one raw record from the system of record: remote field names
// mapped to scalar values, including the remote identifier field.
type Record map[string]any

// Client fetches entity lists from the external system of record.
type Client interface {
	// Fetch returns all remote records for the entity type, in the order
	// the remote system lists them. Failures are returned as *Error so
	// callers can classify them; an empty slice with a nil error means
	// the remote table is genuinely empty.
	Fetch(ctx context.Context, et schema.EntityType) ([]Record, error)
}
