// Package merge reconciles contact records arriving from multiple data
// sources. The resolver is a pure function over its inputs: given a base
// record, an incoming record, and the source each came from, it produces
// a merged record, a conflict log, per-field provenance, and a 0-100
// data-quality score. It performs no I/O and never mutates its inputs.
package merge

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

// MergeResult is everything a resolve call produces. Merged carries the
// winning values with FieldSources and QualityScore already filled in;
// persisting it (and the conflict log) is the caller's job.
type MergeResult struct {
	Merged        *schema.Contact       `json:"merged"`
	Conflicts     []schema.DataConflict `json:"conflicts"`
	QualityScore  float64               `json:"quality_score"`
	SourceSummary map[string]int        `json:"source_summary"`
	Notes         []string              `json:"notes"`
}

// Resolver merges contact records field by field. The zero value is not
// usable; construct with NewResolver.
type Resolver struct {
	// now stamps conflict log entries. Injected so merges are
	// reproducible under test.
	now func() time.Time
}

// NewResolver returns a resolver stamping conflicts with wall-clock time.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverWithClock returns a resolver with an injected clock.
func NewResolverWithClock(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Resolve merges incoming into base. Either input may be nil (the other
// is returned enriched with provenance); both nil is an error. Repeated
// calls with the same inputs yield identical merged records and conflict
// logs, apart from the conflict timestamps.
func (r *Resolver) Resolve(base, incoming *schema.Contact, baseSource, incomingSource Source) (*MergeResult, error) {
	if base == nil && incoming == nil {
		return nil, fmt.Errorf("merge: both records are nil")
	}
	if base == nil {
		base, incoming = incoming, nil
		baseSource = incomingSource
	}

	merged := base.Clone()
	if merged.FieldSources == nil {
		merged.FieldSources = make(map[string]string)
	}
	// Tag base provenance for every filled field that has none yet.
	// Provenance surviving from an earlier merge is kept as-is.
	for _, f := range trackedFields {
		if f.get(merged) != "" {
			if _, tagged := merged.FieldSources[f.name]; !tagged {
				merged.FieldSources[f.name] = baseSource.Name
			}
		}
	}

	var conflicts []schema.DataConflict
	enriched := 0
	if incoming != nil {
		for _, f := range trackedFields {
			incomingVal := f.get(incoming)
			if incomingVal == "" {
				continue
			}
			baseVal := f.get(merged)
			if baseVal == "" {
				// Pure enrichment, never a conflict.
				f.set(merged, incomingVal)
				merged.FieldSources[f.name] = incomingSource.Name
				enriched++
				continue
			}
			if valuesEqual(f.kind, baseVal, incomingVal) {
				continue
			}

			baseCand := candidate{baseVal, SourceByName(merged.FieldSources[f.name])}
			incomingCand := candidate{incomingVal, incomingSource}
			d := resolveConflict(f.kind, baseCand, incomingCand)
			conflicts = append(conflicts, schema.DataConflict{
				FieldName:        f.name,
				ValueFromSourceA: baseVal,
				ValueFromSourceB: incomingVal,
				ChosenValue:      d.value,
				ChosenSource:     d.source.Name,
				ResolutionReason: d.reason,
				Severity:         f.kind.severity(),
				Timestamp:        r.now().UTC(),
			})
			if d.value != baseVal {
				f.set(merged, d.value)
				merged.FieldSources[f.name] = d.source.Name
			}
		}
	}

	quality := qualityScore(merged, conflicts)
	merged.QualityScore = quality

	result := &MergeResult{
		Merged:        merged,
		Conflicts:     conflicts,
		QualityScore:  quality,
		SourceSummary: sourceSummary(merged),
		Notes:         buildNotes(incomingSource, enriched, conflicts),
	}
	return result, nil
}

// Quality score weights: completeness 40%, average source confidence
// 35%, critical-field presence 25%, minus severity-weighted conflict
// penalties.
const (
	completenessWeight = 40.0
	confidenceWeight   = 35.0
	criticalWeight     = 25.0
)

func qualityScore(c *schema.Contact, conflicts []schema.DataConflict) float64 {
	filled := 0
	confidenceSum := 0.0
	for _, f := range trackedFields {
		if f.get(c) == "" {
			continue
		}
		filled++
		confidenceSum += SourceByName(c.FieldSources[f.name]).Confidence
	}

	completeness := float64(filled) / float64(len(trackedFields))
	avgConfidence := 0.0
	if filled > 0 {
		avgConfidence = confidenceSum / float64(filled)
	}

	critical := 0.0
	if isValidEmail(c.Email) {
		critical += 0.5
	}
	if c.DisplayName() != "" {
		critical += 0.5
	}

	score := completeness*completenessWeight +
		avgConfidence*confidenceWeight +
		critical*criticalWeight
	for _, conflict := range conflicts {
		score -= conflict.Severity.PenaltyPoints()
	}

	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

// sourceSummary counts how many tracked fields each source contributed.
func sourceSummary(c *schema.Contact) map[string]int {
	summary := make(map[string]int)
	for _, f := range trackedFields {
		if f.get(c) == "" {
			continue
		}
		if src, ok := c.FieldSources[f.name]; ok {
			summary[src]++
		}
	}
	return summary
}

func buildNotes(incomingSource Source, enriched int, conflicts []schema.DataConflict) []string {
	var notes []string
	if enriched > 0 {
		notes = append(notes, fmt.Sprintf("%d field(s) enriched from %s", enriched, incomingSource.Name))
	}
	if len(conflicts) > 0 {
		bySeverity := map[schema.ConflictSeverity]int{}
		for _, c := range conflicts {
			bySeverity[c.Severity]++
		}
		severities := make([]string, 0, len(bySeverity))
		for _, s := range []schema.ConflictSeverity{schema.SeverityHigh, schema.SeverityMedium, schema.SeverityLow} {
			if n := bySeverity[s]; n > 0 {
				severities = append(severities, fmt.Sprintf("%d %s", n, s))
			}
		}
		notes = append(notes, fmt.Sprintf("%d conflict(s) resolved (%s)", len(conflicts), strings.Join(severities, ", ")))
	}
	if len(notes) == 0 {
		notes = append(notes, "no changes: records agree on all shared fields")
	}
	return notes
}
