package domain

import "time"

// Suppression is a single unsubscribe record. An entry is owned either by a
// contact (current format) or, for records created before contact-level
// suppression existed, by the account that owns the address.
type Suppression struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	ContactID *string   `json:"contact_id,omitempty" db:"contact_id"`
	OwnerID   *string   `json:"owner_id,omitempty" db:"owner_id"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"unsubscribed_at" db:"created_at"`
}
