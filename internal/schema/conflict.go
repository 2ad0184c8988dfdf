package schema

import "time"

// ConflictSeverity classifies how much a field disagreement matters.
type ConflictSeverity string

const (
	// SeverityHigh covers identifier fields (email and other keys used to
	// correlate records across systems).
	SeverityHigh ConflictSeverity = "high"
	// SeverityMedium covers personal and title fields.
	SeverityMedium ConflictSeverity = "medium"
	// SeverityLow covers everything else.
	SeverityLow ConflictSeverity = "low"
)

// PenaltyPoints returns the quality-score penalty for one conflict of
// this severity.
func (s ConflictSeverity) PenaltyPoints() float64 {
	switch s {
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 3
	default:
		return 1
	}
}

// DataConflict is one audit-log entry produced when two sources disagree
// on a field value. The resolver emits these; persisting them is the
// caller's choice.
type DataConflict struct {
	FieldName        string           `json:"field_name"`
	ValueFromSourceA string           `json:"value_from_source_a"`
	ValueFromSourceB string           `json:"value_from_source_b"`
	ChosenValue      string           `json:"chosen_value"`
	ChosenSource     string           `json:"chosen_source"`
	ResolutionReason string           `json:"resolution_reason"`
	Severity         ConflictSeverity `json:"severity"`
	Timestamp        time.Time        `json:"timestamp"`
}
