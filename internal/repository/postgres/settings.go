package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

// SettingsRepo implements sending.SettingsRepository against PostgreSQL.
type SettingsRepo struct{ db *sql.DB }

// NewSettingsRepo creates a Postgres-backed transport settings repository.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) Get(ctx context.Context, ownerID string) (*domain.TransportSettings, error) {
	s := &domain.TransportSettings{}
	err := r.db.QueryRowContext(ctx, `
		SELECT owner_id, region, access_key_id, secret_access_key,
		       from_email, from_name, reply_to_email, is_verified, updated_at
		FROM transport_settings
		WHERE owner_id = $1
	`, ownerID).Scan(
		&s.OwnerID, &s.Region, &s.AccessKeyID, &s.SecretAccessKey,
		&s.FromEmail, &s.FromName, &s.ReplyToEmail, &s.Verified, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sending.ErrConfigurationMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get transport settings: %w", err)
	}
	return s, nil
}
