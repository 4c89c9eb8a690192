package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/distlock"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

// Sender is the part of the delivery engine a dispatch needs.
type Sender interface {
	OpenTransport(ctx context.Context, ownerID string) (sending.Transport, *domain.TransportSettings, error)
	Deliver(ctx context.Context, job sending.Job, recipients []domain.Contact) *sending.Report
}

// Locker hands out a cross-host lock per key.
type Locker interface {
	For(key string) distlock.DistLock
}

// DispatchResult is the aggregate outcome of one campaign dispatch.
// Successful + Failed + Suppressed always equals Total.
type DispatchResult struct {
	CampaignID string `json:"campaignId"`
	Total      int    `json:"total"`
	sending.Report
	SentAt time.Time `json:"sentAt"`
}

// Dispatcher runs campaign dispatches. It is safe for concurrent use.
type Dispatcher struct {
	repo      Repository
	sender    Sender
	filter    sending.SuppressionFilter
	locks     Locker
	batchSize int
	now       func() time.Time
}

// NewDispatcher creates a dispatcher sending batchSize messages at a time.
func NewDispatcher(repo Repository, sender Sender, filter sending.SuppressionFilter, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Dispatcher{repo: repo, sender: sender, filter: filter, batchSize: batchSize, now: time.Now}
}

// WithLocker serializes dispatches of one campaign across hosts.
func (d *Dispatcher) WithLocker(l Locker) *Dispatcher {
	d.locks = l
	return d
}

// Dispatch sends a draft or scheduled campaign to every contact that has not
// unsubscribed, then marks it sent. Once the campaign has moved to
// dispatching the run no longer observes ctx cancellation.
//
// If the final status write fails the result is still returned, together
// with the error, since every message has already been handed off.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID, ownerID string) (*DispatchResult, error) {
	if d.locks != nil {
		lock := d.locks.For("campaign-dispatch:" + campaignID)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			return nil, ErrDispatchInProgress
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release dispatch lock", "campaign_id", campaignID, "error", err)
			}
		}()
	}

	bundle, err := d.repo.GetBundle(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	switch {
	case bundle.Campaign.Status == domain.CampaignSent:
		return nil, ErrAlreadySent
	case !bundle.Campaign.IsSendable():
		return nil, ErrDispatchInProgress
	}

	transport, _, err := d.sender.OpenTransport(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	part, err := d.filter.Partition(ctx, ownerID, bundle.Contacts)
	if err != nil {
		return nil, fmt.Errorf("filter suppressed contacts: %w", err)
	}
	if len(part.Sendable) == 0 {
		return nil, ErrNoRecipients
	}

	err = d.repo.TransitionStatus(ctx, ownerID, campaignID,
		[]domain.CampaignStatus{domain.CampaignDraft, domain.CampaignScheduled}, domain.CampaignDispatching)
	if errors.Is(err, ErrStatusConflict) {
		return nil, ErrDispatchInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("start dispatch: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	started := d.now()
	logger.Info("campaign dispatch started",
		"campaign_id", campaignID, "owner_id", ownerID,
		"recipients", len(part.Sendable), "suppressed", len(part.Suppressed))

	subject := bundle.Campaign.Subject
	if subject == "" {
		subject = bundle.Template.Subject
	}
	report := d.sender.Deliver(runCtx, sending.Job{
		OwnerID:    ownerID,
		Subject:    subject,
		Body:       bundle.Template.Body,
		Type:       domain.DeliveryBulk,
		CampaignID: &campaignID,
		BatchSize:  d.batchSize,
		Transport:  transport,
	}, part.Sendable)
	report.Suppressed = len(part.Suppressed)

	result := &DispatchResult{
		CampaignID: campaignID,
		Total:      len(bundle.Contacts),
		Report:     *report,
		SentAt:     d.now().UTC(),
	}

	if err := d.repo.MarkSent(runCtx, ownerID, campaignID, result.SentAt); err != nil {
		logger.Error("campaign finalize failed", "campaign_id", campaignID, "error", err)
		return result, fmt.Errorf("finalize campaign: %w", err)
	}

	logger.Info("campaign dispatch complete",
		"campaign_id", campaignID, "attempted", result.Attempted(),
		"sent", len(result.Successful), "failed", len(result.Failed),
		"suppressed", result.Suppressed, "unlogged", len(result.Unlogged),
		"duration", d.now().Sub(started).String())
	return result, nil
}
