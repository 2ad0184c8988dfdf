// Package enrich imports contact records from enrichment providers and
// merges them into the mirror through the field conflict resolver.
// Input is JSON Lines: one provider contact per line, matched to
// existing contacts by email address.
package enrich

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/merge"
	"github.com/calebmorris/prospector/internal/schema"
)

// maxLineBytes bounds a single JSONL line. Provider exports with huge
// embedded blobs are rejected rather than buffered without limit.
const maxLineBytes = 1 << 20

// Summary reports what an import pass did.
type Summary struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Merged    int `json:"merged"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
}

// Importer merges provider contact exports into the mirror.
type Importer struct {
	db       *db.DB
	resolver *merge.Resolver
	logger   *log.Logger

	// onConflict, when set, receives every conflict the resolver
	// settles during an import.
	onConflict func(email string, c schema.DataConflict)
}

// New creates an importer.
func New(database *db.DB, resolver *merge.Resolver, logger *log.Logger) (*Importer, error) {
	if database == nil {
		return nil, fmt.Errorf("enrich: db is required")
	}
	if resolver == nil {
		resolver = merge.NewResolver()
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[enrich] ", log.LstdFlags)
	}
	return &Importer{db: database, resolver: resolver, logger: logger}, nil
}

// NotifyConflicts registers fn to be called for each settled conflict,
// keyed by the contact's email. The dashboard publisher hooks in here.
func (im *Importer) NotifyConflicts(fn func(email string, c schema.DataConflict)) {
	im.onConflict = fn
}

// ImportFile imports a JSONL file of provider contacts attributed to
// source.
func (im *Importer) ImportFile(ctx context.Context, path string, source merge.Source) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, source)
}

// Import reads JSONL contacts from r and merges each into the mirror.
// Malformed lines and contacts without an email are skipped and
// counted; they never abort the batch.
func (im *Importer) Import(ctx context.Context, r io.Reader, source merge.Source) (*Summary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	summary := &Summary{}
	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		summary.Processed++

		var incoming schema.Contact
		if err := json.Unmarshal(raw, &incoming); err != nil {
			im.logger.Printf("line %d: skipping malformed record: %v", line, err)
			summary.Skipped++
			continue
		}
		if incoming.Email == "" {
			im.logger.Printf("line %d: skipping record without an email", line)
			summary.Skipped++
			continue
		}

		if err := im.mergeOne(ctx, &incoming, source, summary); err != nil {
			im.logger.Printf("line %d: skipping %s: %v", line, incoming.Email, err)
			summary.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read import stream: %w", err)
	}

	im.logger.Printf("import from %s: processed=%d created=%d merged=%d conflicts=%d skipped=%d",
		source.Name, summary.Processed, summary.Created, summary.Merged, summary.Conflicts, summary.Skipped)
	return summary, nil
}

func (im *Importer) mergeOne(ctx context.Context, incoming *schema.Contact, source merge.Source, summary *Summary) error {
	existing, err := im.db.FindContactByEmail(ctx, incoming.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if existing == nil {
		// New contact: run it through the resolver anyway so provenance
		// and quality score are filled in.
		result, err := im.resolver.Resolve(nil, incoming, merge.SourceWorkspace, source)
		if err != nil {
			return err
		}
		// Never adopt a provider's identifiers as our own.
		result.Merged.LocalID = ""
		result.Merged.RemoteID = ""
		if _, err := im.db.UpsertContactContext(ctx, result.Merged); err != nil {
			return err
		}
		summary.Created++
		return nil
	}

	result, err := im.resolver.Resolve(existing, incoming, merge.SourceWorkspace, source)
	if err != nil {
		return err
	}
	// Identity and correlation stay with the mirror record.
	result.Merged.LocalID = existing.LocalID
	result.Merged.RemoteID = existing.RemoteID
	result.Merged.AccountLocalID = existing.AccountLocalID

	if _, err := im.db.UpsertContactContext(ctx, result.Merged); err != nil {
		return err
	}
	summary.Merged++
	summary.Conflicts += len(result.Conflicts)
	for _, c := range result.Conflicts {
		im.logger.Printf("conflict on %s for %s: %q vs %q -> %q (%s, %s)",
			c.FieldName, incoming.Email, c.ValueFromSourceA, c.ValueFromSourceB,
			c.ChosenValue, c.ChosenSource, c.ResolutionReason)
		if im.onConflict != nil {
			im.onConflict(incoming.Email, c)
		}
	}
	return nil
}
