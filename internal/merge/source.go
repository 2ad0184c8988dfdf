package merge

// Source identifies where a record's values came from and how much we
// trust them. Confidence is a static ranking, not a per-record
// measurement: the workspace system of record is fed by a structured
// API, manual entry is deliberate but typo-prone, profile scraping and
// algorithmic inference trail behind.
type Source struct {
	// Name tags provenance entries and conflict log rows.
	Name string
	// Confidence in [0, 1]; used by the default strategy and the
	// quality score.
	Confidence float64
	// Structured marks sources fed by a structured API rather than
	// inferred from free text. Several strategies break ties toward
	// the structured side.
	Structured bool
}

// The four known sources, ordered by confidence.
var (
	SourceWorkspace = Source{Name: "workspace", Confidence: 0.95, Structured: true}
	SourceManual    = Source{Name: "manual", Confidence: 0.85, Structured: false}
	SourceProfile   = Source{Name: "profile", Confidence: 0.70, Structured: false}
	SourceInferred  = Source{Name: "inferred", Confidence: 0.55, Structured: false}
)

// SourceByName resolves a provenance tag back to its Source. Unknown
// tags get a conservative low-confidence placeholder so old provenance
// data never breaks a quality computation.
func SourceByName(name string) Source {
	switch name {
	case SourceWorkspace.Name:
		return SourceWorkspace
	case SourceManual.Name:
		return SourceManual
	case SourceProfile.Name:
		return SourceProfile
	case SourceInferred.Name:
		return SourceInferred
	default:
		return Source{Name: name, Confidence: 0.50}
	}
}
