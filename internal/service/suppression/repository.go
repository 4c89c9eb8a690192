package suppression

import (
	"context"
	"strings"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// KeyKind selects how a suppression entry is matched.
type KeyKind int

const (
	// KindContact matches entries recorded against a contact.
	KindContact KeyKind = iota + 1
	// KindOwner matches legacy entries recorded against an account and address.
	KindOwner
)

// Key identifies the suppression entries that apply to a recipient.
// Build keys with ByContact or ByOwner so they compare equal across calls.
type Key struct {
	Kind      KeyKind
	ContactID string
	OwnerID   string
	Email     string
}

// ByContact returns the key for entries recorded against contactID.
func ByContact(contactID string) Key {
	return Key{Kind: KindContact, ContactID: contactID}
}

// ByOwner returns the legacy key for entries recorded against ownerID and email.
func ByOwner(ownerID, email string) Key {
	return Key{Kind: KindOwner, OwnerID: ownerID, Email: NormalizeEmail(email)}
}

// NormalizeEmail lowercases and trims an address for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository defines the data access contract for the unsubscribe list.
type Repository interface {
	// MatchKeys returns the subset of keys that have at least one entry,
	// resolved in a single round trip. Returned keys equal their inputs.
	MatchKeys(ctx context.Context, keys []Key) ([]Key, error)

	// Upsert records an unsubscribe. An existing entry for the same address
	// and contact is refreshed rather than duplicated.
	Upsert(ctx context.Context, s *domain.Suppression) error

	// Find returns the entry for email under key, or ErrNotFound.
	Find(ctx context.Context, email string, key Key) (*domain.Suppression, error)
}
