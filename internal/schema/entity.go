// Package schema defines the record types held in the local mirror store.
//
// Every synced entity type (accounts, contacts, timeline events,
// partnerships) carries the same identity envelope: a locally generated
// local_id owned by the mirror store, a nullable remote_id correlating
// the row with the external system of record, and the three bookkeeping
// timestamps. The structs here are the explicit, typed replacement for
// the loosely shaped field dictionaries the remote API speaks.
package schema

import "fmt"

// EntityType identifies one synced table in the mirror store.
type EntityType string

const (
	// EntityAccounts is the companies/accounts table.
	EntityAccounts EntityType = "accounts"
	// EntityContacts is the people/contacts table.
	EntityContacts EntityType = "contacts"
	// EntityTimelineEvents is the account timeline events table.
	EntityTimelineEvents EntityType = "timeline_events"
	// EntityPartnerships is the account partnerships table.
	EntityPartnerships EntityType = "partnerships"
)

// AllEntityTypes returns every synced entity type in canonical sync order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityAccounts,
		EntityContacts,
		EntityTimelineEvents,
		EntityPartnerships,
	}
}

// ValidEntityType reports whether et names a synced table.
func ValidEntityType(et EntityType) bool {
	switch et {
	case EntityAccounts, EntityContacts, EntityTimelineEvents, EntityPartnerships:
		return true
	}
	return false
}

// ParseEntityType converts a string (CLI argument, config value) to an
// EntityType, returning an error for unknown names.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(s)
	if !ValidEntityType(et) {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return et, nil
}
