package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

// DeliveryLogRepo implements sending.DeliveryLogRepository against PostgreSQL.
type DeliveryLogRepo struct{ db *sql.DB }

// NewDeliveryLogRepo creates a Postgres-backed delivery log repository.
func NewDeliveryLogRepo(db *sql.DB) *DeliveryLogRepo { return &DeliveryLogRepo{db: db} }

func (r *DeliveryLogRepo) Create(ctx context.Context, e *domain.DeliveryLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_logs
			(id, owner_id, recipient, subject, status, message_id, error, error_type, type, campaign_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.OwnerID, e.To, e.Subject, string(e.Status), e.MessageID,
		e.Error, e.ErrorType, string(e.Type), e.CampaignID, e.SentAt)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (r *DeliveryLogRepo) List(ctx context.Context, ownerID string, f sending.HistoryFilter) ([]domain.DeliveryLog, int, error) {
	where := ` WHERE owner_id = $1`
	args := []interface{}{ownerID}
	idx := 2

	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, string(f.Status))
		idx++
	}
	if f.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, string(f.Type))
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (recipient ILIKE $%d OR subject ILIKE $%d)", idx, idx)
		args = append(args, "%"+escapeLike(f.Search)+"%")
		idx++
	}
	if f.StartDate != nil {
		where += fmt.Sprintf(" AND sent_at >= $%d", idx)
		args = append(args, *f.StartDate)
		idx++
	}
	if f.EndDate != nil {
		where += fmt.Sprintf(" AND sent_at <= $%d", idx)
		args = append(args, *f.EndDate)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count delivery logs: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT id, owner_id, recipient, subject, status, message_id, error, error_type, type, campaign_id, sent_at
		FROM delivery_logs` + where +
		fmt.Sprintf(" ORDER BY sent_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list delivery logs: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryLog
	for rows.Next() {
		var (
			e          domain.DeliveryLog
			campaignID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.To, &e.Subject, &e.Status, &e.MessageID,
			&e.Error, &e.ErrorType, &e.Type, &campaignID, &e.SentAt); err != nil {
			return nil, 0, fmt.Errorf("scan delivery log: %w", err)
		}
		if campaignID.Valid {
			id := campaignID.String
			e.CampaignID = &id
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
