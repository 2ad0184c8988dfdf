package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	"github.com/google/uuid"
)

const accountColumns = `local_id, remote_id, name, domain, industry, employee_count,
	lead_score, status, extra, created_at, last_updated_at, remote_last_modified_at`

// UpsertAccount inserts or updates an account keyed by remote_id.
// Returns the row's local_id. See UpsertContact for upsert semantics.
func (db *DB) UpsertAccount(a *schema.Account) (string, error) {
	return db.UpsertAccountContext(context.Background(), a)
}

// UpsertAccountContext inserts or updates an account with context support.
func (db *DB) UpsertAccountContext(ctx context.Context, a *schema.Account) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	extraJSON, err := marshalJSONColumn(a.Extra)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extra fields: %w", err)
	}

	if a.RemoteID != "" {
		var localID string
		err := db.conn.QueryRowContext(ctx,
			`SELECT local_id FROM accounts WHERE remote_id = ?`, a.RemoteID).Scan(&localID)
		switch {
		case err == nil:
			_, err = db.conn.ExecContext(ctx, `
			UPDATE accounts SET
				name = ?, domain = ?, industry = ?, employee_count = ?,
				lead_score = ?, status = ?, extra = ?,
				last_updated_at = ?, remote_last_modified_at = ?
			WHERE local_id = ?`,
				a.Name, a.Domain, a.Industry, a.EmployeeCount,
				a.LeadScore, a.Status, extraJSON,
				now, timeToNullString(a.RemoteLastModifiedAt),
				localID,
			)
			if err != nil {
				return "", fmt.Errorf("failed to update account %s: %w", localID, err)
			}
			return localID, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("failed to look up account by remote id: %w", err)
		}
	}

	localID := a.LocalID
	if localID == "" {
		localID = uuid.NewString()
	}

	_, err = db.conn.ExecContext(ctx, `
	INSERT INTO accounts (`+accountColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		localID, stringToNull(a.RemoteID), a.Name, a.Domain, a.Industry,
		a.EmployeeCount, a.LeadScore, a.Status, extraJSON,
		now, now, timeToNullString(a.RemoteLastModifiedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert account: %w", err)
	}
	return localID, nil
}

// GetAccountLocalID resolves a remote account id to its local row id.
// Returns empty string (no error) when the account isn't mirrored yet.
func (db *DB) GetAccountLocalID(ctx context.Context, remoteID string) (string, error) {
	if remoteID == "" {
		return "", nil
	}
	var localID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT local_id FROM accounts WHERE remote_id = ?`, remoteID).Scan(&localID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve account %s: %w", remoteID, err)
	}
	return localID, nil
}

// GetAccountByLocalID retrieves a single account.
// Returns sql.ErrNoRows if not found.
func (db *DB) GetAccountByLocalID(ctx context.Context, localID string) (*schema.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE local_id = ?`, localID)
	return scanAccount(row)
}

// AccountFilter configures ListAccounts. Zero values mean "no filter".
type AccountFilter struct {
	// NameContains does a case-insensitive substring match on name.
	NameContains string
	// Domain filters by exact domain.
	Domain string
	// Industry filters by exact industry.
	Industry string
	// MinLeadScore keeps accounts with lead_score >= the given value.
	MinLeadScore float64
	// Status filters by account status.
	Status string
	// UpdatedSince keeps accounts touched after the given time.
	UpdatedSince time.Time
	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// ListAccounts retrieves accounts matching the filter, ordered by lead
// score descending.
func (db *DB) ListAccounts(ctx context.Context, filter AccountFilter) ([]*schema.Account, error) {
	var conditions []string
	var args []interface{}

	if filter.NameContains != "" {
		conditions = append(conditions, "name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.NameContains+"%")
	}
	if filter.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.Industry != "" {
		conditions = append(conditions, "industry = ?")
		args = append(args, filter.Industry)
	}
	if filter.MinLeadScore > 0 {
		conditions = append(conditions, "lead_score >= ?")
		args = append(args, filter.MinLeadScore)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.UpdatedSince.IsZero() {
		conditions = append(conditions, "last_updated_at >= ?")
		args = append(args, filter.UpdatedSince.UTC().Format(time.RFC3339))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY lead_score DESC, last_updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*schema.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (*schema.Account, error) {
	var a schema.Account
	var remoteID, domain, industry, status, extraJSON, remoteModified sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&a.LocalID, &remoteID, &a.Name, &domain, &industry, &a.EmployeeCount,
		&a.LeadScore, &status, &extraJSON, &createdAt, &updatedAt, &remoteModified,
	)
	if err != nil {
		return nil, err
	}

	a.RemoteID = remoteID.String
	a.Domain = domain.String
	a.Industry = industry.String
	a.Status = status.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		a.LastUpdatedAt = t
	}
	a.RemoteLastModifiedAt = nullStringToTime(remoteModified)

	a.Extra, err = unmarshalJSONColumn(extraJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal extra fields: %w", err)
	}

	return &a, nil
}
