package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) MatchKeys(ctx context.Context, keys []suppression.Key) ([]suppression.Key, error) {
	want := make(map[suppression.Key]struct{}, len(keys))
	var contactIDs, owners, emails []string
	for _, k := range keys {
		if _, dup := want[k]; dup {
			continue
		}
		want[k] = struct{}{}
		switch k.Kind {
		case suppression.KindContact:
			contactIDs = append(contactIDs, k.ContactID)
		case suppression.KindOwner:
			owners = append(owners, k.OwnerID)
			emails = append(emails, k.Email)
		}
	}
	if len(want) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT u.contact_id, u.owner_id, u.email
		FROM unsubscribes u
		WHERE u.contact_id = ANY($1)
		   OR EXISTS (
		        SELECT 1 FROM unnest($2::text[], $3::text[]) AS k(owner_id, email)
		        WHERE u.contact_id IS NULL AND k.owner_id = u.owner_id AND k.email = u.email
		   )
	`, pq.Array(contactIDs), pq.Array(owners), pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("match suppressions: %w", err)
	}
	defer rows.Close()

	seen := make(map[suppression.Key]struct{})
	var out []suppression.Key
	add := func(k suppression.Key) {
		if _, ok := want[k]; !ok {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for rows.Next() {
		var (
			contactID, ownerID sql.NullString
			email              string
		)
		if err := rows.Scan(&contactID, &ownerID, &email); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		// Owner keys only come from legacy rows; a contact-keyed row never
		// suppresses other contacts of the same owner.
		switch {
		case contactID.Valid:
			add(suppression.ByContact(contactID.String))
		case ownerID.Valid:
			add(suppression.ByOwner(ownerID.String, email))
		}
	}
	return out, rows.Err()
}

func (r *SuppressionRepo) Upsert(ctx context.Context, s *domain.Suppression) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO unsubscribes (id, email, contact_id, owner_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email, contact_id) WHERE contact_id IS NOT NULL
		DO UPDATE SET owner_id = COALESCE(EXCLUDED.owner_id, unsubscribes.owner_id),
		              reason = EXCLUDED.reason,
		              created_at = EXCLUDED.created_at
		RETURNING id
	`, s.ID, s.Email, s.ContactID, s.OwnerID, s.Reason, s.CreatedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("upsert suppression: %w", err)
	}
	return nil
}

func (r *SuppressionRepo) Find(ctx context.Context, email string, key suppression.Key) (*domain.Suppression, error) {
	var where, value string
	switch key.Kind {
	case suppression.KindContact:
		where, value = "contact_id = $2", key.ContactID
	case suppression.KindOwner:
		where, value = "owner_id = $2 AND contact_id IS NULL", key.OwnerID
	default:
		return nil, suppression.ErrKeyMissing
	}

	s := &domain.Suppression{}
	var contactID, ownerID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, contact_id, owner_id, reason, created_at
		FROM unsubscribes
		WHERE email = $1 AND `+where+`
		ORDER BY created_at DESC
		LIMIT 1
	`, email, value).Scan(&s.ID, &s.Email, &contactID, &ownerID, &s.Reason, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, suppression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find suppression: %w", err)
	}
	if contactID.Valid {
		s.ContactID = &contactID.String
	}
	if ownerID.Valid {
		s.OwnerID = &ownerID.String
	}
	return s, nil
}
