package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// contactColumns is shared by every query that loads contacts. Callers alias
// the contacts table as ct.
const contactColumns = `ct.id, ct.owner_id, ct.email, ct.company, ct.full_name,
	COALESCE(ct.work_phone,''), COALESCE(ct.mobile_phone,''), COALESCE(ct.role,''),
	COALESCE(ct.address,''), COALESCE(ct.city,''), COALESCE(ct.state,''), COALESCE(ct.zip,''),
	ct.created_at`

func scanContacts(rows *sql.Rows) ([]domain.Contact, error) {
	defer rows.Close()
	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID, &c.OwnerID, &c.Email, &c.Company, &c.FullName,
			&c.WorkPhone, &c.MobilePhone, &c.Role,
			&c.Address, &c.City, &c.State, &c.Zip,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContactRepo implements sending.ContactRepository against PostgreSQL.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

func (r *ContactRepo) GetByEmails(ctx context.Context, ownerID string, emails []string) ([]domain.Contact, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts ct
		WHERE ct.owner_id = $1 AND ct.email = ANY($2)
	`, ownerID, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("get contacts by email: %w", err)
	}
	return scanContacts(rows)
}
