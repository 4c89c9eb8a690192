package suppression

import (
	"context"
	"fmt"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// Partition splits recipients by suppression state. Both halves keep the
// input order.
type Partition struct {
	Sendable   []domain.Contact
	Suppressed []domain.Contact
}

// Filter removes unsubscribed contacts from a recipient list. It never
// writes to the repository.
type Filter struct {
	repo Repository
}

// NewFilter creates a filter backed by repo.
func NewFilter(repo Repository) *Filter {
	return &Filter{repo: repo}
}

// Partition looks up every recipient with one batched repository call. A
// contact is suppressed when an entry matches its contact id, or its address
// under ownerID.
func (f *Filter) Partition(ctx context.Context, ownerID string, contacts []domain.Contact) (Partition, error) {
	if len(contacts) == 0 {
		return Partition{}, nil
	}

	keys := make([]Key, 0, len(contacts)*2)
	for _, c := range contacts {
		keys = append(keys, ByContact(c.ID), ByOwner(ownerID, c.Email))
	}
	matched, err := f.repo.MatchKeys(ctx, keys)
	if err != nil {
		return Partition{}, fmt.Errorf("match suppression keys: %w", err)
	}
	hit := make(map[Key]struct{}, len(matched))
	for _, k := range matched {
		hit[k] = struct{}{}
	}

	p := Partition{Sendable: make([]domain.Contact, 0, len(contacts))}
	for _, c := range contacts {
		_, byContact := hit[ByContact(c.ID)]
		_, byOwner := hit[ByOwner(ownerID, c.Email)]
		if byContact || byOwner {
			p.Suppressed = append(p.Suppressed, c)
			continue
		}
		p.Sendable = append(p.Sendable, c)
	}
	return p, nil
}
