package campaign

import (
	"context"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// Repository defines the data access contract for campaign dispatch.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetBundle returns the campaign with its template and contacts.
	// Returns ErrNotFound if it doesn't exist or belongs to another owner.
	GetBundle(ctx context.Context, ownerID, id string) (*domain.CampaignBundle, error)

	// TransitionStatus moves the campaign to `to` only if its current status
	// is one of `from`, atomically. Returns ErrStatusConflict otherwise.
	TransitionStatus(ctx context.Context, ownerID, id string, from []domain.CampaignStatus, to domain.CampaignStatus) error

	// MarkSent moves a dispatching campaign to sent and stamps sentAt.
	// Returns ErrStatusConflict if the campaign is not dispatching.
	MarkSent(ctx context.Context, ownerID, id string, sentAt time.Time) error
}
