// Package mapping holds the static field-mapping table that translates
// remote system-of-record field names to local mirror column names.
//
// The table is versioned TOML, embedded at build time with an optional
// on-disk override. Unmapped remote fields are not discarded: callers
// receive them under a normalized snake_case fallback name so that adding
// a mapping later never requires a backfill.
package mapping

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/calebmorris/prospector/internal/schema"
)

//go:embed mappings.toml
var embeddedTable []byte

// tableFile is the TOML document shape.
type tableFile struct {
	Version        int               `toml:"version"`
	Accounts       map[string]string `toml:"accounts"`
	Contacts       map[string]string `toml:"contacts"`
	TimelineEvents map[string]string `toml:"timeline_events"`
	Partnerships   map[string]string `toml:"partnerships"`
}

// Table maps (entity type, remote field name) to a local column name.
type Table struct {
	Version  int
	entities map[schema.EntityType]map[string]string
}

// Parse decodes a TOML mapping document.
func Parse(data []byte) (*Table, error) {
	var tf tableFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse mapping table: %w", err)
	}
	if tf.Version < 1 {
		return nil, fmt.Errorf("mapping table version %d is not supported", tf.Version)
	}
	return &Table{
		Version: tf.Version,
		entities: map[schema.EntityType]map[string]string{
			schema.EntityAccounts:       tf.Accounts,
			schema.EntityContacts:       tf.Contacts,
			schema.EntityTimelineEvents: tf.TimelineEvents,
			schema.EntityPartnerships:   tf.Partnerships,
		},
	}, nil
}

// LoadFile reads a mapping table override from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return table, nil
}

// Default returns the table embedded in the binary.
func Default() *Table {
	table, err := Parse(embeddedTable)
	if err != nil {
		// The embedded table is validated by tests; a parse failure here
		// is a build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded mapping table is invalid: %v", err))
	}
	return table
}

// LocalField returns the local column name for a remote field, if mapped.
func (t *Table) LocalField(et schema.EntityType, remoteField string) (string, bool) {
	fields, ok := t.entities[et]
	if !ok {
		return "", false
	}
	local, ok := fields[remoteField]
	return local, ok
}

// Apply splits a remote record into mapped local fields and unmapped
// extras. Extras keep their values under a normalized snake_case name.
func (t *Table) Apply(et schema.EntityType, rec map[string]any) (mapped, extra map[string]any) {
	mapped = make(map[string]any, len(rec))
	extra = make(map[string]any)
	for remoteField, value := range rec {
		if local, ok := t.LocalField(et, remoteField); ok {
			mapped[local] = value
			continue
		}
		extra[NormalizeFieldName(remoteField)] = value
	}
	return mapped, extra
}

// NormalizeFieldName converts an arbitrary remote field name to
// snake_case: lowercased, with runs of non-alphanumeric characters
// collapsed to single underscores.
func NormalizeFieldName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := true // suppress leading underscore
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
