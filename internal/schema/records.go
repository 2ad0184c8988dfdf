package schema

import "time"

// Account is a mirrored company record.
type Account struct {
	LocalID  string `json:"local_id"`
	RemoteID string `json:"remote_id,omitempty"`

	Name          string  `json:"name"`
	Domain        string  `json:"domain,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	EmployeeCount int     `json:"employee_count,omitempty"`
	LeadScore     float64 `json:"lead_score,omitempty"`
	Status        string  `json:"status,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`
	RemoteLastModifiedAt *time.Time `json:"remote_last_modified_at,omitempty"`

	// Extra holds remote fields with no mapping entry, keyed by their
	// normalized snake_case name. Preserved so future mapping additions
	// don't require a backfill.
	Extra map[string]any `json:"extra,omitempty"`
}

// Contact is a mirrored person record. Contacts are the only entity type
// enriched from multiple providers, so they additionally carry per-field
// provenance and a computed data-quality score.
type Contact struct {
	LocalID        string `json:"local_id"`
	RemoteID       string `json:"remote_id,omitempty"`
	AccountLocalID string `json:"account_local_id,omitempty"`

	FirstName       string  `json:"first_name,omitempty"`
	LastName        string  `json:"last_name,omitempty"`
	FullName        string  `json:"full_name,omitempty"`
	Email           string  `json:"email,omitempty"`
	Title           string  `json:"title,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Department      string  `json:"department,omitempty"`
	Location        string  `json:"location,omitempty"`
	LinkedInURL     string  `json:"linkedin_url,omitempty"`
	WebsiteURL      string  `json:"website_url,omitempty"`
	LeadScore       float64 `json:"lead_score,omitempty"`
	EngagementScore float64 `json:"engagement_score,omitempty"`

	// FieldSources maps a field name to the data source that last
	// contributed its value ("workspace", "manual", "profile", "inferred").
	FieldSources map[string]string `json:"field_sources,omitempty"`

	// QualityScore is the 0-100 data-quality score from the last merge.
	QualityScore float64 `json:"quality_score,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`
	RemoteLastModifiedAt *time.Time `json:"remote_last_modified_at,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy of the contact. The merge resolver mutates
// its working copy, never its inputs.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := *c
	if c.FieldSources != nil {
		out.FieldSources = make(map[string]string, len(c.FieldSources))
		for k, v := range c.FieldSources {
			out.FieldSources[k] = v
		}
	}
	if c.Extra != nil {
		out.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	if c.RemoteLastModifiedAt != nil {
		t := *c.RemoteLastModifiedAt
		out.RemoteLastModifiedAt = &t
	}
	return &out
}

// DisplayName returns the best available human-readable name.
func (c *Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	if c.FirstName != "" || c.LastName != "" {
		if c.FirstName == "" {
			return c.LastName
		}
		if c.LastName == "" {
			return c.FirstName
		}
		return c.FirstName + " " + c.LastName
	}
	return c.Email
}

// TimelineEvent is a mirrored trigger/timeline event attached to an account.
type TimelineEvent struct {
	LocalID        string `json:"local_id"`
	RemoteID       string `json:"remote_id,omitempty"`
	AccountLocalID string `json:"account_local_id,omitempty"`

	EventType   string     `json:"event_type,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`
	RemoteLastModifiedAt *time.Time `json:"remote_last_modified_at,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Partnership is a mirrored partnership record attached to an account.
type Partnership struct {
	LocalID        string `json:"local_id"`
	RemoteID       string `json:"remote_id,omitempty"`
	AccountLocalID string `json:"account_local_id,omitempty"`

	PartnerName string     `json:"partner_name"`
	Category    string     `json:"category,omitempty"`
	Strength    float64    `json:"strength,omitempty"`
	DetectedAt  *time.Time `json:"detected_at,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	LastUpdatedAt        time.Time  `json:"last_updated_at"`
	RemoteLastModifiedAt *time.Time `json:"remote_last_modified_at,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}
