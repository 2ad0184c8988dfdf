package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/google/uuid"
)

const partnershipColumns = `local_id, remote_id, account_local_id, partner_name,
	category, strength, detected_at, extra, created_at, last_updated_at, remote_last_modified_at`

// UpsertPartnership inserts or updates a partnership keyed by remote_id.
// Returns the row's local_id.
func (db *DB) UpsertPartnership(p *schema.Partnership) (string, error) {
	return db.UpsertPartnershipContext(context.Background(), p)
}

// UpsertPartnershipContext inserts or updates a partnership with context support.
func (db *DB) UpsertPartnershipContext(ctx context.Context, p *schema.Partnership) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	extraJSON, err := marshalJSONColumn(p.Extra)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extra fields: %w", err)
	}

	if p.RemoteID != "" {
		var localID string
		err := db.conn.QueryRowContext(ctx,
			`SELECT local_id FROM partnerships WHERE remote_id = ?`, p.RemoteID).Scan(&localID)
		switch {
		case err == nil:
			_, err = db.conn.ExecContext(ctx, `
			UPDATE partnerships SET
				account_local_id = ?, partner_name = ?, category = ?, strength = ?,
				detected_at = ?, extra = ?, last_updated_at = ?, remote_last_modified_at = ?
			WHERE local_id = ?`,
				stringToNull(p.AccountLocalID), p.PartnerName, p.Category, p.Strength,
				timeToNullString(p.DetectedAt), extraJSON,
				now, timeToNullString(p.RemoteLastModifiedAt),
				localID,
			)
			if err != nil {
				return "", fmt.Errorf("failed to update partnership %s: %w", localID, err)
			}
			return localID, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("failed to look up partnership by remote id: %w", err)
		}
	}

	localID := p.LocalID
	if localID == "" {
		localID = uuid.NewString()
	}

	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO partnerships (`+partnershipColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		localID, stringToNull(p.RemoteID), stringToNull(p.AccountLocalID),
		p.PartnerName, p.Category, p.Strength, timeToNullString(p.DetectedAt),
		extraJSON, now, now, timeToNullString(p.RemoteLastModifiedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert partnership: %w", err)
	}
	return localID, nil
}

// ListPartnerships returns an account's partnerships, strongest first.
// An empty accountLocalID returns partnerships across all accounts.
func (db *DB) ListPartnerships(ctx context.Context, accountLocalID string, limit int) ([]*schema.Partnership, error) {
	query := `SELECT ` + partnershipColumns + ` FROM partnerships`
	var args []interface{}
	if accountLocalID != "" {
		query += " WHERE account_local_id = ?"
		args = append(args, accountLocalID)
	}
	query += " ORDER BY strength DESC, last_updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partnerships: %w", err)
	}
	defer rows.Close()

	var partnerships []*schema.Partnership
	for rows.Next() {
		var p schema.Partnership
		var remoteID, accountID, category, detectedAt, extraJSON, remoteModified sql.NullString
		var createdAt, updatedAt string

		err := rows.Scan(
			&p.LocalID, &remoteID, &accountID, &p.PartnerName,
			&category, &p.Strength, &detectedAt, &extraJSON,
			&createdAt, &updatedAt, &remoteModified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partnership: %w", err)
		}

		p.RemoteID = remoteID.String
		p.AccountLocalID = accountID.String
		p.Category = category.String
		p.DetectedAt = nullStringToTime(detectedAt)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			p.LastUpdatedAt = t
		}
		p.RemoteLastModifiedAt = nullStringToTime(remoteModified)
		p.Extra, err = unmarshalJSONColumn(extraJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra fields: %w", err)
		}

		partnerships = append(partnerships, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partnerships: %w", err)
	}
	return partnerships, nil
}
