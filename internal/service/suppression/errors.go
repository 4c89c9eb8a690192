package suppression

import "errors"

// Sentinel errors for the suppression service layer.
var (
	ErrNotFound       = errors.New("suppression entry not found")
	ErrEmailRequired  = errors.New("email is required")
	ErrContactMissing = errors.New("contact id is required")
	ErrKeyMissing     = errors.New("contact id or user id is required")
)
