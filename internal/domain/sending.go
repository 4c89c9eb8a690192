package domain

import "time"

// DeliveryStatus is the recorded result of one send attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryType distinguishes the send path that produced a log entry.
type DeliveryType string

const (
	DeliverySingle DeliveryType = "single"
	DeliveryBulk   DeliveryType = "bulk"
	DeliveryTest   DeliveryType = "test"
)

// NoMessageID is stored in place of a provider message id for failed attempts.
const NoMessageID = "N/A"

// DeliveryLog is the immutable record of one send attempt.
type DeliveryLog struct {
	ID         string         `json:"id" db:"id"`
	OwnerID    string         `json:"owner_id" db:"owner_id"`
	To         string         `json:"to" db:"recipient"`
	Subject    string         `json:"subject" db:"subject"`
	Status     DeliveryStatus `json:"status" db:"status"`
	MessageID  string         `json:"message_id" db:"message_id"`
	Error      string         `json:"error,omitempty" db:"error"`
	ErrorType  string         `json:"error_type,omitempty" db:"error_type"`
	Type       DeliveryType   `json:"type" db:"type"`
	CampaignID *string        `json:"campaign_id,omitempty" db:"campaign_id"`
	SentAt     time.Time      `json:"sent_at" db:"sent_at"`
}

// TransportSettings holds an owner's outbound provider credentials and the
// verified sender identity used for every message they send.
type TransportSettings struct {
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	Region          string    `json:"region" db:"region"`
	AccessKeyID     string    `json:"-" db:"access_key_id"`
	SecretAccessKey string    `json:"-" db:"secret_access_key"`
	FromEmail       string    `json:"from_email" db:"from_email"`
	FromName        string    `json:"from_name" db:"from_name"`
	ReplyToEmail    string    `json:"reply_to_email" db:"reply_to_email"`
	Verified        bool      `json:"is_verified" db:"is_verified"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// EmailMessage is the fully-resolved message handed to a transport.
// By the time a message reaches this struct, token substitution and the
// unsubscribe footer have been applied.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
