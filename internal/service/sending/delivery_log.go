package sending

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
)

// Attempt is everything the delivery logger needs to record one send.
type Attempt struct {
	OwnerID    string
	To         string
	Subject    string
	Type       domain.DeliveryType
	CampaignID *string
	MessageID  string
	Err        *TransportError
}

// DeliveryLogger writes one delivery log entry per attempt. Writes are
// synchronous: the attempt is not complete until Record returns.
type DeliveryLogger struct {
	repo DeliveryLogRepository
	now  func() time.Time
}

// NewDeliveryLogger creates a logger backed by repo.
func NewDeliveryLogger(repo DeliveryLogRepository) *DeliveryLogger {
	return &DeliveryLogger{repo: repo, now: time.Now}
}

// Record persists the attempt. Failed attempts are stored with the
// domain.NoMessageID sentinel and the classified error.
func (l *DeliveryLogger) Record(ctx context.Context, a Attempt) (*domain.DeliveryLog, error) {
	entry := &domain.DeliveryLog{
		OwnerID:    a.OwnerID,
		To:         a.To,
		Subject:    a.Subject,
		Status:     domain.DeliverySent,
		MessageID:  a.MessageID,
		Type:       a.Type,
		CampaignID: a.CampaignID,
		SentAt:     l.now().UTC(),
	}
	if a.Err != nil {
		entry.Status = domain.DeliveryFailed
		entry.MessageID = domain.NoMessageID
		entry.Error = a.Err.Detail()
		entry.ErrorType = string(a.Err.Type)
	}

	if err := l.repo.Create(ctx, entry); err != nil {
		logger.Error("delivery log write failed",
			"to", a.To, "status", entry.Status, "type", a.Type, "error", err)
		return nil, fmt.Errorf("record delivery: %w", err)
	}
	return entry, nil
}
