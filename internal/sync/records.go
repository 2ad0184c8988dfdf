package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

// upsertRecord builds the typed entity from a mapped remote record and
// writes it to the mirror. A malformed record returns an error; the
// caller skips it and counts it toward conflicts_detected.
func (e *Engine) upsertRecord(ctx context.Context, et schema.EntityType, mapped, extra map[string]any) error {
	switch et {
	case schema.EntityAccounts:
		return e.upsertAccount(ctx, mapped, extra)
	case schema.EntityContacts:
		return e.upsertContact(ctx, mapped, extra)
	case schema.EntityTimelineEvents:
		return e.upsertTimelineEvent(ctx, mapped, extra)
	case schema.EntityPartnerships:
		return e.upsertPartnership(ctx, mapped, extra)
	default:
		return fmt.Errorf("unknown entity type %q", et)
	}
}

// requireRemoteID extracts the remote identifier; records without one
// cannot be correlated and are rejected.
func requireRemoteID(mapped map[string]any) (string, error) {
	id, ok, err := schema.StringField(mapped, "remote_id")
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		return "", fmt.Errorf("record has no remote id")
	}
	return id, nil
}

func remoteModifiedAt(mapped map[string]any) (*time.Time, error) {
	t, ok, err := schema.TimeField(mapped, "remote_last_modified_at")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (e *Engine) upsertAccount(ctx context.Context, mapped, extra map[string]any) error {
	remoteID, err := requireRemoteID(mapped)
	if err != nil {
		return err
	}
	a := &schema.Account{RemoteID: remoteID, Extra: extra}

	if a.Name, _, err = schema.StringField(mapped, "name"); err != nil {
		return err
	}
	if a.Domain, _, err = schema.StringField(mapped, "domain"); err != nil {
		return err
	}
	if a.Industry, _, err = schema.StringField(mapped, "industry"); err != nil {
		return err
	}
	if a.EmployeeCount, _, err = schema.IntField(mapped, "employee_count"); err != nil {
		return err
	}
	if a.LeadScore, _, err = schema.FloatField(mapped, "lead_score"); err != nil {
		return err
	}
	if a.Status, _, err = schema.StringField(mapped, "status"); err != nil {
		return err
	}
	if a.RemoteLastModifiedAt, err = remoteModifiedAt(mapped); err != nil {
		return err
	}

	_, err = e.db.UpsertAccountContext(ctx, a)
	return err
}

func (e *Engine) upsertContact(ctx context.Context, mapped, extra map[string]any) error {
	remoteID, err := requireRemoteID(mapped)
	if err != nil {
		return err
	}
	c := &schema.Contact{RemoteID: remoteID, Extra: extra}

	// Correlate to the mirrored account. An account that has not been
	// mirrored yet leaves the link empty; the next accounts pass plus
	// contacts pass repairs it.
	accountRemoteID, _, err := schema.StringField(mapped, "account_remote_id")
	if err != nil {
		return err
	}
	if accountRemoteID != "" {
		c.AccountLocalID, err = e.db.GetAccountLocalID(ctx, accountRemoteID)
		if err != nil {
			return err
		}
	}

	if c.FirstName, _, err = schema.StringField(mapped, "first_name"); err != nil {
		return err
	}
	if c.LastName, _, err = schema.StringField(mapped, "last_name"); err != nil {
		return err
	}
	if c.FullName, _, err = schema.StringField(mapped, "full_name"); err != nil {
		return err
	}
	if c.Email, _, err = schema.StringField(mapped, "email"); err != nil {
		return err
	}
	if c.Title, _, err = schema.StringField(mapped, "title"); err != nil {
		return err
	}
	if c.Phone, _, err = schema.StringField(mapped, "phone"); err != nil {
		return err
	}
	if c.Department, _, err = schema.StringField(mapped, "department"); err != nil {
		return err
	}
	if c.Location, _, err = schema.StringField(mapped, "location"); err != nil {
		return err
	}
	if c.LinkedInURL, _, err = schema.StringField(mapped, "linkedin_url"); err != nil {
		return err
	}
	if c.WebsiteURL, _, err = schema.StringField(mapped, "website_url"); err != nil {
		return err
	}
	if c.LeadScore, _, err = schema.FloatField(mapped, "lead_score"); err != nil {
		return err
	}
	if c.EngagementScore, _, err = schema.FloatField(mapped, "engagement_score"); err != nil {
		return err
	}
	if c.RemoteLastModifiedAt, err = remoteModifiedAt(mapped); err != nil {
		return err
	}

	_, err = e.db.UpsertContactContext(ctx, c)
	return err
}

func (e *Engine) upsertTimelineEvent(ctx context.Context, mapped, extra map[string]any) error {
	remoteID, err := requireRemoteID(mapped)
	if err != nil {
		return err
	}
	ev := &schema.TimelineEvent{RemoteID: remoteID, Extra: extra}

	accountRemoteID, _, err := schema.StringField(mapped, "account_remote_id")
	if err != nil {
		return err
	}
	if accountRemoteID != "" {
		ev.AccountLocalID, err = e.db.GetAccountLocalID(ctx, accountRemoteID)
		if err != nil {
			return err
		}
	}

	if ev.EventType, _, err = schema.StringField(mapped, "event_type"); err != nil {
		return err
	}
	if ev.Title, _, err = schema.StringField(mapped, "title"); err != nil {
		return err
	}
	if ev.Description, _, err = schema.StringField(mapped, "description"); err != nil {
		return err
	}
	if occurred, ok, err := schema.TimeField(mapped, "occurred_at"); err != nil {
		return err
	} else if ok {
		ev.OccurredAt = &occurred
	}
	if ev.RemoteLastModifiedAt, err = remoteModifiedAt(mapped); err != nil {
		return err
	}

	_, err = e.db.UpsertTimelineEventContext(ctx, ev)
	return err
}

func (e *Engine) upsertPartnership(ctx context.Context, mapped, extra map[string]any) error {
	remoteID, err := requireRemoteID(mapped)
	if err != nil {
		return err
	}
	p := &schema.Partnership{RemoteID: remoteID, Extra: extra}

	accountRemoteID, _, err := schema.StringField(mapped, "account_remote_id")
	if err != nil {
		return err
	}
	if accountRemoteID != "" {
		p.AccountLocalID, err = e.db.GetAccountLocalID(ctx, accountRemoteID)
		if err != nil {
			return err
		}
	}

	if p.PartnerName, _, err = schema.StringField(mapped, "partner_name"); err != nil {
		return err
	}
	if p.Category, _, err = schema.StringField(mapped, "category"); err != nil {
		return err
	}
	if p.Strength, _, err = schema.FloatField(mapped, "strength"); err != nil {
		return err
	}
	if detected, ok, err := schema.TimeField(mapped, "detected_at"); err != nil {
		return err
	} else if ok {
		p.DetectedAt = &detected
	}
	if p.RemoteLastModifiedAt, err = remoteModifiedAt(mapped); err != nil {
		return err
	}

	_, err = e.db.UpsertPartnershipContext(ctx, p)
	return err
}
