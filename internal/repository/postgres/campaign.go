package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) GetBundle(ctx context.Context, ownerID, id string) (*domain.CampaignBundle, error) {
	b := &domain.CampaignBundle{}
	c, t := &b.Campaign, &b.Template
	var scheduledAt, sentAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.owner_id, c.name, c.subject, c.template_id, c.status,
		       c.scheduled_at, c.sent_at, c.created_at,
		       t.id, t.owner_id, t.name, t.subject, t.body, t.created_at
		FROM campaigns c
		JOIN templates t ON t.id = c.template_id
		WHERE c.id = $1 AND c.owner_id = $2
	`, id, ownerID).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Subject, &c.TemplateID, &c.Status,
		&scheduledAt, &sentAt, &c.CreatedAt,
		&t.ID, &t.OwnerID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM campaign_contacts cc
		JOIN contacts ct ON ct.id = cc.contact_id
		WHERE cc.campaign_id = $1
		ORDER BY cc.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign contacts: %w", err)
	}
	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, fmt.Errorf("get campaign contacts: %w", err)
	}
	b.Contacts = contacts
	c.ContactIDs = make([]string, len(contacts))
	for i, ct := range contacts {
		c.ContactIDs[i] = ct.ID
	}
	return b, nil
}

func (r *CampaignRepo) TransitionStatus(ctx context.Context, ownerID, id string, from []domain.CampaignStatus, to domain.CampaignStatus) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3 AND status = ANY($4)
	`, string(to), id, ownerID, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("transition campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return r.missOrConflict(ctx, ownerID, id)
}

func (r *CampaignRepo) MarkSent(ctx context.Context, ownerID, id string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, sent_at = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 AND status = $5
	`, string(domain.CampaignSent), sentAt, id, ownerID, string(domain.CampaignDispatching))
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return r.missOrConflict(ctx, ownerID, id)
}

// missOrConflict explains a compare-and-set that matched no row.
func (r *CampaignRepo) missOrConflict(ctx context.Context, ownerID, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1 AND owner_id = $2)`,
		id, ownerID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		return campaign.ErrNotFound
	}
	return campaign.ErrStatusConflict
}
