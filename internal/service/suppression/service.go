package suppression

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
)

// Service implements unsubscribe business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// UnsubscribeRequest is a recipient's request to stop receiving mail.
// OwnerID is optional and recorded for the account's own reporting.
type UnsubscribeRequest struct {
	Email     string `json:"email"`
	ContactID string `json:"contactId"`
	OwnerID   string `json:"-"`
	Reason    string `json:"reason"`
}

// Unsubscribe records an unsubscribe for a contact. Repeating the request is
// harmless: the existing entry is refreshed.
func (s *Service) Unsubscribe(ctx context.Context, req UnsubscribeRequest) (*domain.Suppression, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	contactID := strings.TrimSpace(req.ContactID)
	if contactID == "" {
		return nil, ErrContactMissing
	}

	entry := &domain.Suppression{
		Email:     email,
		ContactID: &contactID,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: time.Now().UTC(),
	}
	if req.OwnerID != "" {
		owner := req.OwnerID
		entry.OwnerID = &owner
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	logger.Info("contact unsubscribed", "email", email, "contact_id", contactID)
	return entry, nil
}

// Status reports whether an address is unsubscribed.
type Status struct {
	IsUnsubscribed bool       `json:"isUnsubscribed"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
}

// Status checks an address against a contact id, or against the legacy
// account id when contactID is empty.
func (s *Service) Status(ctx context.Context, email, contactID, ownerID string) (*Status, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	var key Key
	switch {
	case contactID != "":
		key = ByContact(contactID)
	case ownerID != "":
		key = ByOwner(ownerID, email)
	default:
		return nil, ErrKeyMissing
	}

	entry, err := s.repo.Find(ctx, email, key)
	if errors.Is(err, ErrNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}
	at := entry.CreatedAt
	return &Status{IsUnsubscribed: true, UnsubscribedAt: &at}, nil
}
