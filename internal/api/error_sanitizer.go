package api

import (
	"errors"
	"net/http"

	"github.com/ignite/campaign-mailer/internal/pkg/httputil"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
	"github.com/ignite/campaign-mailer/internal/service/sending"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

// apiError is the public face of a service error.
type apiError struct {
	status  int
	code    string
	message string
}

var sentinelErrors = []struct {
	err  error
	resp apiError
}{
	{campaign.ErrNotFound, apiError{http.StatusNotFound, "not_found", "Campaign not found"}},
	{campaign.ErrDispatchInProgress, apiError{http.StatusConflict, "dispatch_in_progress", "Campaign is already being sent"}},
	{campaign.ErrAlreadySent, apiError{http.StatusBadRequest, "already_sent", "Campaign has already been sent"}},
	{sending.ErrNoRecipients, apiError{http.StatusBadRequest, "no_recipients", "No valid recipients found"}},
	{sending.ErrConfigurationMissing, apiError{http.StatusBadRequest, "configuration_missing",
		"AWS settings not found. Please configure your AWS SES settings first."}},
	{sending.ErrConfigurationUnverified, apiError{http.StatusBadRequest, "configuration_unverified",
		"AWS settings not verified. Please verify your AWS SES settings first."}},
	{sending.ErrUnknownContact, apiError{http.StatusBadRequest, "unknown_contact", "Contact not found for this email address"}},
	{sending.ErrRecipientSuppressed, apiError{http.StatusBadRequest, "recipient_suppressed", "Recipient has unsubscribed from emails"}},
}

// invalidRequest errors echo their own message, which describes the bad input.
var invalidRequest = []error{
	sending.ErrInvalidMessage,
	suppression.ErrEmailRequired,
	suppression.ErrContactMissing,
	suppression.ErrKeyMissing,
}

// transportStatus maps a classified send failure to an HTTP status.
var transportStatus = map[sending.ErrorType]int{
	sending.ErrorVerificationRequired: http.StatusBadRequest,
	sending.ErrorMessageRejected:      http.StatusBadRequest,
	sending.ErrorInvalidParameters:    http.StatusBadRequest,
	sending.ErrorQuotaExceeded:        http.StatusTooManyRequests,
}

// transportFailure is the body returned when a single send fails at the
// provider.
type transportFailure struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	ErrorType sending.ErrorType `json:"errorType"`
}

// writeServiceError translates a service error into a JSON error response.
// Unrecognised errors are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var te *sending.TransportError
	if errors.As(err, &te) {
		status, ok := transportStatus[te.Type]
		if !ok {
			status = http.StatusBadGateway
		}
		httputil.JSON(w, status, transportFailure{Error: te.Message, Code: "send_failed", ErrorType: te.Type})
		return
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			httputil.ErrorCode(w, s.resp.status, s.resp.code, s.resp.message)
			return
		}
	}
	for _, target := range invalidRequest {
		if errors.Is(err, target) {
			httputil.ErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}
	httputil.InternalError(w, err)
}
