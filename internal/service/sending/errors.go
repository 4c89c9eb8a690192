package sending

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Sentinel errors for the sending service layer. Each one aborts a whole
// send before any message is handed to the transport.
var (
	ErrConfigurationMissing    = errors.New("transport settings not configured")
	ErrConfigurationUnverified = errors.New("transport settings not verified")
	ErrNoRecipients            = errors.New("no valid recipients")
	ErrUnknownContact          = errors.New("contact not found for this email address")
	ErrRecipientSuppressed     = errors.New("recipient has unsubscribed from emails")
	ErrInvalidMessage          = errors.New("invalid message")
)

// ErrorType classifies a per-recipient transport failure.
type ErrorType string

const (
	ErrorVerificationRequired ErrorType = "verification_required"
	ErrorMessageRejected      ErrorType = "message_rejected"
	ErrorInvalidParameters    ErrorType = "invalid_parameters"
	ErrorQuotaExceeded        ErrorType = "quota_exceeded"
	ErrorUnknown              ErrorType = "unknown"
)

var userMessages = map[ErrorType]string{
	ErrorVerificationRequired: "Email address is not verified with the provider",
	ErrorMessageRejected:      "Email was rejected by the provider",
	ErrorInvalidParameters:    "Invalid email parameters",
	ErrorQuotaExceeded:        "Email sending quota exceeded",
}

// TransportError is a classified per-recipient send failure. Message is the
// user-facing description; Err carries the provider's original error.
type TransportError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }

// Detail returns the provider's original error text.
func (e *TransportError) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// provider error codes, checked before falling back to message text
var codeTypes = map[string]ErrorType{
	"MessageRejected":                    ErrorMessageRejected,
	"MailFromDomainNotVerifiedException": ErrorVerificationRequired,
	"InvalidParameterValue":              ErrorInvalidParameters,
	"BadRequestException":                ErrorInvalidParameters,
	"LimitExceededException":             ErrorQuotaExceeded,
	"TooManyRequestsException":           ErrorQuotaExceeded,
	"SendingPausedException":             ErrorQuotaExceeded,
	"Throttling":                         ErrorQuotaExceeded,
}

// ordered: the first matching fragment wins
var textTypes = []struct {
	fragment string
	typ      ErrorType
}{
	{"Email address is not verified", ErrorVerificationRequired},
	{"MessageRejected", ErrorMessageRejected},
	{"InvalidParameterValue", ErrorInvalidParameters},
	{"QuotaExceeded", ErrorQuotaExceeded},
	{"Daily message quota exceeded", ErrorQuotaExceeded},
	{"Maximum sending rate exceeded", ErrorQuotaExceeded},
}

// Classify maps any send error to a *TransportError. A nil error yields nil;
// an error that already is a *TransportError is returned unchanged.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Type: ErrorUnknown, Message: "send timed out", Err: err}
	}

	typ := classifyText(err.Error())
	if typ == ErrorUnknown {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			if t, ok := codeTypes[apiErr.ErrorCode()]; ok {
				typ = t
			} else {
				typ = classifyText(apiErr.ErrorMessage())
			}
		}
	}

	msg, ok := userMessages[typ]
	if !ok {
		msg = err.Error()
	}
	return &TransportError{Type: typ, Message: msg, Err: err}
}

func classifyText(s string) ErrorType {
	for _, tt := range textTypes {
		if strings.Contains(s, tt.fragment) {
			return tt.typ
		}
	}
	return ErrorUnknown
}
