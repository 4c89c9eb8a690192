package sending

import (
	"context"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

// Transport delivers one fully-resolved message and returns the provider
// message id. Implementations must be safe for concurrent use; one instance
// is shared by every send of a dispatch.
type Transport interface {
	Send(ctx context.Context, msg *domain.EmailMessage) (string, error)
}

// TransportFactory builds a Transport from an owner's settings. It is called
// once per dispatch.
type TransportFactory interface {
	New(ctx context.Context, settings domain.TransportSettings) (Transport, error)
}

// SettingsRepository loads outbound transport settings. Get returns
// ErrConfigurationMissing when the owner has none.
type SettingsRepository interface {
	Get(ctx context.Context, ownerID string) (*domain.TransportSettings, error)
}

// ContactRepository resolves an owner's contacts by address.
type ContactRepository interface {
	// GetByEmails returns the owner's contacts whose email is in emails.
	// Unknown addresses are simply absent from the result.
	GetByEmails(ctx context.Context, ownerID string, emails []string) ([]domain.Contact, error)
}

// DeliveryLogRepository persists and queries delivery log entries.
type DeliveryLogRepository interface {
	Create(ctx context.Context, entry *domain.DeliveryLog) error
	List(ctx context.Context, ownerID string, filter HistoryFilter) ([]domain.DeliveryLog, int, error)
}

// SuppressionFilter splits recipients into sendable and suppressed sets.
type SuppressionFilter interface {
	Partition(ctx context.Context, ownerID string, contacts []domain.Contact) (suppression.Partition, error)
}

// HistoryFilter controls pagination and filtering of the delivery history.
// Empty Status/Type mean "all". Search matches recipient or subject,
// case-insensitively.
type HistoryFilter struct {
	Status    domain.DeliveryStatus
	Type      domain.DeliveryType
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
