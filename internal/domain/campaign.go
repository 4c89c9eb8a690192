package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft       CampaignStatus = "draft"
	CampaignScheduled   CampaignStatus = "scheduled"
	CampaignDispatching CampaignStatus = "dispatching"
	CampaignSent        CampaignStatus = "sent"
)

// Campaign is a named bulk-send job linking one template to a set of contacts.
// SentAt is set exactly once, when Status becomes sent.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	OwnerID     string         `json:"owner_id" db:"owner_id"`
	Name        string         `json:"name" db:"name"`
	Subject     string         `json:"subject" db:"subject"`
	TemplateID  string         `json:"template_id" db:"template_id"`
	ContactIDs  []string       `json:"contact_ids" db:"-"`
	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty" db:"scheduled_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// IsSendable reports whether a dispatch may start from the current status.
func (c *Campaign) IsSendable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// Template is a reusable subject/body pair with merge tokens.
type Template struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CampaignBundle is a campaign resolved together with its template and the
// contacts it targets, in the campaign's stored order.
type CampaignBundle struct {
	Campaign Campaign
	Template Template
	Contacts []Contact
}
