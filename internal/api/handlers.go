package api

import (
	"context"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
	"github.com/ignite/campaign-mailer/internal/service/sending"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

// CampaignDispatcher sends a stored campaign.
type CampaignDispatcher interface {
	Dispatch(ctx context.Context, campaignID, ownerID string) (*campaign.DispatchResult, error)
}

// Mailer sends ad-hoc mail and reads the delivery log.
type Mailer interface {
	SendSingle(ctx context.Context, ownerID string, req sending.SingleRequest) (*sending.SingleResult, error)
	SendBulk(ctx context.Context, ownerID string, req sending.BulkRequest) (*sending.Report, error)
	SendTest(ctx context.Context, ownerID, to string) (*sending.SingleResult, error)
	History(ctx context.Context, ownerID string, q sending.HistoryQuery) (*sending.HistoryPage, error)
}

// Unsubscriber records and reports unsubscribes.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, req suppression.UnsubscribeRequest) (*domain.Suppression, error)
	Status(ctx context.Context, email, contactID, ownerID string) (*suppression.Status, error)
}

// Handlers contains the HTTP handlers for the mailer API.
type Handlers struct {
	campaigns    CampaignDispatcher
	mailer       Mailer
	unsubscribes Unsubscriber
	health       *HealthChecker
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(campaigns CampaignDispatcher, mailer Mailer, unsubscribes Unsubscriber, health *HealthChecker) *Handlers {
	return &Handlers{
		campaigns:    campaigns,
		mailer:       mailer,
		unsubscribes: unsubscribes,
		health:       health,
	}
}
