package merge

import (
	"strconv"
	"strings"

	"github.com/calebmorris/prospector/internal/schema"
)

// fieldKind selects the merge strategy and the conflict severity for a
// tracked field.
type fieldKind int

const (
	kindDefault fieldKind = iota
	kindEmail
	kindName
	kindTitle
	kindScore
	kindURL
	kindPhone
)

// severity classifies a conflict on this kind of field. Identifier
// fields are high, personal and title fields medium, the rest low.
func (k fieldKind) severity() schema.ConflictSeverity {
	switch k {
	case kindEmail:
		return schema.SeverityHigh
	case kindName, kindTitle, kindPhone:
		return schema.SeverityMedium
	default:
		return schema.SeverityLow
	}
}

// field is one tracked contact field: a stable name for provenance and
// conflict logs, a kind, and accessors over the contact struct. Score
// fields round-trip through their string form for logging but compare
// numerically.
type field struct {
	name string
	kind fieldKind
	get  func(*schema.Contact) string
	set  func(*schema.Contact, string)
}

// trackedFields is the fixed-order registry the resolver iterates.
// Order matters twice: conflicts are emitted in this order, and the
// completeness ratio counts these fields and no others.
//
// Score fields read their zero value as absent: a score of 0 is never
// provenance-tagged, never counts toward completeness, and never
// surfaces in a conflict. Providers signal "no score" with 0, so a
// genuine zero and a missing score are indistinguishable here.
var trackedFields = []field{
	{"first_name", kindName,
		func(c *schema.Contact) string { return c.FirstName },
		func(c *schema.Contact, v string) { c.FirstName = v }},
	{"last_name", kindName,
		func(c *schema.Contact) string { return c.LastName },
		func(c *schema.Contact, v string) { c.LastName = v }},
	{"full_name", kindName,
		func(c *schema.Contact) string { return c.FullName },
		func(c *schema.Contact, v string) { c.FullName = v }},
	{"email", kindEmail,
		func(c *schema.Contact) string { return c.Email },
		func(c *schema.Contact, v string) { c.Email = v }},
	{"title", kindTitle,
		func(c *schema.Contact) string { return c.Title },
		func(c *schema.Contact, v string) { c.Title = v }},
	{"phone", kindPhone,
		func(c *schema.Contact) string { return c.Phone },
		func(c *schema.Contact, v string) { c.Phone = v }},
	{"department", kindDefault,
		func(c *schema.Contact) string { return c.Department },
		func(c *schema.Contact, v string) { c.Department = v }},
	{"location", kindDefault,
		func(c *schema.Contact) string { return c.Location },
		func(c *schema.Contact, v string) { c.Location = v }},
	{"linkedin_url", kindURL,
		func(c *schema.Contact) string { return c.LinkedInURL },
		func(c *schema.Contact, v string) { c.LinkedInURL = v }},
	{"website_url", kindURL,
		func(c *schema.Contact) string { return c.WebsiteURL },
		func(c *schema.Contact, v string) { c.WebsiteURL = v }},
	{"lead_score", kindScore,
		func(c *schema.Contact) string { return formatScore(c.LeadScore) },
		func(c *schema.Contact, v string) { c.LeadScore = parseScore(v) }},
	{"engagement_score", kindScore,
		func(c *schema.Contact) string { return formatScore(c.EngagementScore) },
		func(c *schema.Contact, v string) { c.EngagementScore = parseScore(v) }},
}

func formatScore(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseScore(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// valuesEqual reports whether two field values are semantically equal:
// numeric equality for score fields, case- and whitespace-insensitive
// comparison for everything else.
func valuesEqual(k fieldKind, a, b string) bool {
	if k == kindScore {
		return parseScore(a) == parseScore(b)
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
