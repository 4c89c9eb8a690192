package campaign

import (
	"errors"

	"github.com/ignite/campaign-mailer/internal/service/sending"
)

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound           = errors.New("campaign not found")
	ErrAlreadySent        = errors.New("campaign has already been sent")
	ErrDispatchInProgress = errors.New("campaign dispatch already in progress")
	ErrStatusConflict     = errors.New("campaign status changed concurrently")
	ErrNoRecipients       = sending.ErrNoRecipients
)
