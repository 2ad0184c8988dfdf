package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/google/uuid"
)

const contactColumns = `local_id, remote_id, account_local_id, first_name, last_name,
	full_name, email, title, phone, department, location, linkedin_url,
	website_url, lead_score, engagement_score, field_sources, quality_score,
	extra, created_at, last_updated_at, remote_last_modified_at`

// UpsertContact inserts or updates a contact keyed by remote_id.
//
// If the contact carries a remote_id and a row with that remote_id
// exists, all mapped fields except local_id and created_at are updated in
// place. Otherwise a new row is inserted with a freshly generated
// local_id. Returns the row's local_id. Idempotent apart from the
// last_updated_at refresh.
func (db *DB) UpsertContact(c *schema.Contact) (string, error) {
	return db.UpsertContactContext(context.Background(), c)
}

// UpsertContactContext inserts or updates a contact with context support.
func (db *DB) UpsertContactContext(ctx context.Context, c *schema.Contact) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	sourcesJSON, err := marshalSources(c.FieldSources)
	if err != nil {
		return "", fmt.Errorf("failed to marshal field sources: %w", err)
	}
	extraJSON, err := marshalJSONColumn(c.Extra)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extra fields: %w", err)
	}

	// Lookup-before-insert: a non-null remote_id maps to at most one row.
	if c.RemoteID != "" {
		var localID string
		err := db.conn.QueryRowContext(ctx,
			`SELECT local_id FROM contacts WHERE remote_id = ?`, c.RemoteID).Scan(&localID)
		switch {
		case err == nil:
			_, err = db.conn.ExecContext(ctx, `
			UPDATE contacts SET
				account_local_id = ?, first_name = ?, last_name = ?, full_name = ?,
				email = ?, title = ?, phone = ?, department = ?, location = ?,
				linkedin_url = ?, website_url = ?, lead_score = ?, engagement_score = ?,
				field_sources = ?, quality_score = ?, extra = ?,
				last_updated_at = ?, remote_last_modified_at = ?
			WHERE local_id = ?`,
				stringToNull(c.AccountLocalID), c.FirstName, c.LastName, c.FullName,
				c.Email, c.Title, c.Phone, c.Department, c.Location,
				c.LinkedInURL, c.WebsiteURL, c.LeadScore, c.EngagementScore,
				sourcesJSON, c.QualityScore, extraJSON,
				now, timeToNullString(c.RemoteLastModifiedAt),
				localID,
			)
			if err != nil {
				return "", fmt.Errorf("failed to update contact %s: %w", localID, err)
			}
			return localID, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("failed to look up contact by remote id: %w", err)
		}
	}

	// Enrichment-created contacts have no remote_id; their identity is
	// the local_id alone.
	if c.RemoteID == "" && c.LocalID != "" {
		res, err := db.conn.ExecContext(ctx, `
		UPDATE contacts SET
			account_local_id = ?, first_name = ?, last_name = ?, full_name = ?,
			email = ?, title = ?, phone = ?, department = ?, location = ?,
			linkedin_url = ?, website_url = ?, lead_score = ?, engagement_score = ?,
			field_sources = ?, quality_score = ?, extra = ?,
			last_updated_at = ?, remote_last_modified_at = ?
		WHERE local_id = ?`,
			stringToNull(c.AccountLocalID), c.FirstName, c.LastName, c.FullName,
			c.Email, c.Title, c.Phone, c.Department, c.Location,
			c.LinkedInURL, c.WebsiteURL, c.LeadScore, c.EngagementScore,
			sourcesJSON, c.QualityScore, extraJSON,
			now, timeToNullString(c.RemoteLastModifiedAt),
			c.LocalID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update contact %s: %w", c.LocalID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return c.LocalID, nil
		}
	}

	localID := c.LocalID
	if localID == "" {
		localID = uuid.NewString()
	}

	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO contacts (`+contactColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		localID, stringToNull(c.RemoteID), stringToNull(c.AccountLocalID),
		c.FirstName, c.LastName, c.FullName, c.Email, c.Title, c.Phone,
		c.Department, c.Location, c.LinkedInURL, c.WebsiteURL,
		c.LeadScore, c.EngagementScore, sourcesJSON, c.QualityScore, extraJSON,
		now, now, timeToNullString(c.RemoteLastModifiedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert contact: %w", err)
	}
	return localID, nil
}

// GetContactByLocalID retrieves a single contact.
// Returns sql.ErrNoRows if not found.
func (db *DB) GetContactByLocalID(ctx context.Context, localID string) (*schema.Contact, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE local_id = ?`, localID)
	return scanContact(row)
}

// GetContactByRemoteID retrieves a contact by its system-of-record key.
// Returns sql.ErrNoRows if not found.
func (db *DB) GetContactByRemoteID(ctx context.Context, remoteID string) (*schema.Contact, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE remote_id = ?`, remoteID)
	return scanContact(row)
}

// FindContactByEmail retrieves a contact by normalized email comparison.
// Returns sql.ErrNoRows if not found.
func (db *DB) FindContactByEmail(ctx context.Context, email string) (*schema.Contact, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE lower(email) = lower(?)`,
		strings.TrimSpace(email))
	return scanContact(row)
}

// ContactFilter configures ListContacts. Zero values mean "no filter".
type ContactFilter struct {
	// AccountLocalID restricts to one account's contacts.
	AccountLocalID string
	// MinLeadScore keeps contacts with lead_score >= the given value.
	MinLeadScore float64
	// MinQualityScore keeps contacts with quality_score >= the given value.
	MinQualityScore float64
	// UpdatedSince keeps contacts touched after the given time.
	UpdatedSince time.Time
	// OrderBy is one of "lead_score", "quality_score", "last_updated_at",
	// "full_name". Default: lead_score descending.
	OrderBy string
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results.
	Offset int
}

// ListContacts retrieves contacts matching the filter. Purely local;
// never blocks on remote calls.
func (db *DB) ListContacts(ctx context.Context, filter ContactFilter) ([]*schema.Contact, error) {
	var conditions []string
	var args []interface{}

	if filter.AccountLocalID != "" {
		conditions = append(conditions, "account_local_id = ?")
		args = append(args, filter.AccountLocalID)
	}
	if filter.MinLeadScore > 0 {
		conditions = append(conditions, "lead_score >= ?")
		args = append(args, filter.MinLeadScore)
	}
	if filter.MinQualityScore > 0 {
		conditions = append(conditions, "quality_score >= ?")
		args = append(args, filter.MinQualityScore)
	}
	if !filter.UpdatedSince.IsZero() {
		conditions = append(conditions, "last_updated_at >= ?")
		args = append(args, filter.UpdatedSince.UTC().Format(time.RFC3339))
	}

	query := `SELECT ` + contactColumns + ` FROM contacts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + contactOrderClause(filter.OrderBy)

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*schema.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

// contactOrderClause maps a caller-specified order key to a safe ORDER BY
// clause. Unknown keys fall back to relevance (lead score) descending.
func contactOrderClause(orderBy string) string {
	switch orderBy {
	case "quality_score":
		return "quality_score DESC, last_updated_at DESC"
	case "last_updated_at":
		return "last_updated_at DESC"
	case "full_name":
		return "full_name ASC, last_updated_at DESC"
	default:
		return "lead_score DESC, last_updated_at DESC"
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*schema.Contact, error) {
	var c schema.Contact
	var remoteID, accountLocalID, sourcesJSON, extraJSON sql.NullString
	var createdAt, updatedAt string
	var remoteModified sql.NullString
	var firstName, lastName, fullName, email, title, phone sql.NullString
	var department, location, linkedinURL, websiteURL sql.NullString

	err := row.Scan(
		&c.LocalID, &remoteID, &accountLocalID, &firstName, &lastName,
		&fullName, &email, &title, &phone, &department, &location,
		&linkedinURL, &websiteURL, &c.LeadScore, &c.EngagementScore,
		&sourcesJSON, &c.QualityScore, &extraJSON,
		&createdAt, &updatedAt, &remoteModified,
	)
	if err != nil {
		return nil, err
	}

	c.RemoteID = remoteID.String
	c.AccountLocalID = accountLocalID.String
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.FullName = fullName.String
	c.Email = email.String
	c.Title = title.String
	c.Phone = phone.String
	c.Department = department.String
	c.Location = location.String
	c.LinkedInURL = linkedinURL.String
	c.WebsiteURL = websiteURL.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		c.LastUpdatedAt = t
	}
	c.RemoteLastModifiedAt = nullStringToTime(remoteModified)

	c.FieldSources, err = unmarshalSources(sourcesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal field sources: %w", err)
	}
	c.Extra, err = unmarshalJSONColumn(extraJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal extra fields: %w", err)
	}

	return &c, nil
}

func marshalSources(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{Valid: false}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalSources(ns sql.NullString) (map[string]string, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
