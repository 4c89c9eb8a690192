package sending

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
)

// Options tunes the delivery engine.
type Options struct {
	// UnsubscribeBaseURL is the prefix of every footer link, e.g.
	// "https://api.example.com/api/email".
	UnsubscribeBaseURL string
	// BatchPause is the fixed pause between consecutive batches.
	BatchPause time.Duration
	// SendTimeout bounds each transport call. Zero means no bound.
	SendTimeout time.Duration
	// DefaultBulkBatchSize applies when a bulk request omits its batch size.
	DefaultBulkBatchSize int
	// MaxBulkBatchSize caps the batch size of bulk requests.
	MaxBulkBatchSize int
}

// Service is the delivery engine. It is safe for concurrent use.
type Service struct {
	settings   SettingsRepository
	contacts   ContactRepository
	logs       DeliveryLogRepository
	filter     SuppressionFilter
	factory    TransportFactory
	deliveries *DeliveryLogger
	opts       Options

	// wait overrides the inter-batch pause in tests.
	wait func(ctx context.Context, d time.Duration)
}

// NewService wires the engine to its repositories and transport factory.
func NewService(settings SettingsRepository, contacts ContactRepository, logs DeliveryLogRepository,
	filter SuppressionFilter, factory TransportFactory, opts Options) *Service {
	if opts.DefaultBulkBatchSize <= 0 {
		opts.DefaultBulkBatchSize = 50
	}
	if opts.MaxBulkBatchSize <= 0 {
		opts.MaxBulkBatchSize = 5000
	}
	return &Service{
		settings:   settings,
		contacts:   contacts,
		logs:       logs,
		filter:     filter,
		factory:    factory,
		deliveries: NewDeliveryLogger(logs),
		opts:       opts,
	}
}

// Job describes one fan-out over recipients that already passed suppression.
type Job struct {
	OwnerID    string
	Subject    string
	Body       string
	Type       domain.DeliveryType
	CampaignID *string
	BatchSize  int
	Transport  Transport
	// Raw sends Subject and Body verbatim: no merge tokens, no footer.
	Raw bool
}

// Delivered is a recipient the transport accepted.
type Delivered struct {
	To        string `json:"to"`
	MessageID string `json:"messageId"`
	LogID     string `json:"logId,omitempty"`
}

// Failure is a recipient the transport refused or could not reach.
type Failure struct {
	To            string    `json:"to"`
	Error         string    `json:"error"`
	ErrorType     ErrorType `json:"errorType"`
	OriginalError string    `json:"originalError,omitempty"`
}

// Unlogged is a recipient whose delivery log entry could not be written.
// It also appears in Successful or Failed according to its send result.
type Unlogged struct {
	To     string                `json:"to"`
	Status domain.DeliveryStatus `json:"status"`
	Error  string                `json:"error"`
}

// Report aggregates the outcomes of one send.
type Report struct {
	Successful []Delivered `json:"successful"`
	Failed     []Failure   `json:"failed"`
	Suppressed int         `json:"suppressed"`
	Unlogged   []Unlogged  `json:"unlogged,omitempty"`
}

// Attempted returns the number of recipients handed to the transport.
func (r *Report) Attempted() int { return len(r.Successful) + len(r.Failed) }

// OpenTransport resolves the owner's verified settings and builds the
// transport shared by every send of one dispatch.
func (s *Service) OpenTransport(ctx context.Context, ownerID string) (Transport, *domain.TransportSettings, error) {
	settings, err := ResolveSettings(ctx, s.settings, ownerID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.factory.New(ctx, *settings)
	if err != nil {
		return nil, nil, fmt.Errorf("build transport: %w", err)
	}
	return t, settings, nil
}

// Deliver sends job to every recipient in batches and returns the
// aggregated report. Per-recipient failures never abort the run, and once
// started the run ignores cancellation of ctx so every attempt is logged.
func (s *Service) Deliver(ctx context.Context, job Job, recipients []domain.Contact) *Report {
	ctx = context.WithoutCancel(ctx)
	d := &BatchDispatcher{
		BatchSize: job.BatchSize,
		Pause:     s.opts.BatchPause,
		wait:      s.wait,
		OnBatch: func(p BatchProgress) {
			logger.Debug("batch complete",
				"type", job.Type, "campaign_id", deref(job.CampaignID),
				"batch", p.Batch, "batches", p.Batches,
				"processed", p.Processed, "total", p.Total)
		},
	}
	outcomes := d.Run(ctx, recipients, func(ctx context.Context, c domain.Contact) Outcome {
		return s.deliverOne(ctx, job, c)
	})

	report := &Report{Successful: []Delivered{}, Failed: []Failure{}}
	for _, o := range outcomes {
		status := domain.DeliverySent
		if o.Succeeded() {
			report.Successful = append(report.Successful, Delivered{To: o.Contact.Email, MessageID: o.MessageID, LogID: o.LogID})
		} else {
			status = domain.DeliveryFailed
			report.Failed = append(report.Failed, Failure{
				To:            o.Contact.Email,
				Error:         o.Err.Message,
				ErrorType:     o.Err.Type,
				OriginalError: o.Err.Detail(),
			})
		}
		if o.LogErr != nil {
			report.Unlogged = append(report.Unlogged, Unlogged{To: o.Contact.Email, Status: status, Error: o.LogErr.Error()})
		}
	}
	return report
}

func (s *Service) deliverOne(ctx context.Context, job Job, c domain.Contact) Outcome {
	msg := &domain.EmailMessage{To: c.Email, Subject: job.Subject, HTML: job.Body}
	if !job.Raw {
		msg.Subject = Personalize(job.Subject, c)
		msg.HTML = AppendUnsubscribeFooter(Personalize(job.Body, c),
			UnsubscribeURL(s.opts.UnsubscribeBaseURL, c.Email, c.ID))
	}

	sendCtx := ctx
	if s.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()
	}

	out := Outcome{Contact: c}
	id, err := sendRecovered(sendCtx, job.Transport, msg)
	if err != nil {
		out.Err = Classify(err)
		logger.Warn("send failed", "to", c.Email, "type", job.Type, "error_type", out.Err.Type, "error", out.Err.Detail())
	} else {
		out.MessageID = id
	}

	entry, logErr := s.deliveries.Record(ctx, Attempt{
		OwnerID:    job.OwnerID,
		To:         c.Email,
		Subject:    msg.Subject,
		Type:       job.Type,
		CampaignID: job.CampaignID,
		MessageID:  out.MessageID,
		Err:        out.Err,
	})
	if logErr != nil {
		out.LogErr = logErr
	} else {
		out.LogID = entry.ID
	}
	return out
}

// sendRecovered turns a panicking transport into a send error so the
// attempt is still classified and logged.
func sendRecovered(ctx context.Context, t Transport, msg *domain.EmailMessage) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transport panicked", "to", msg.To, "panic", r)
			id, err = "", fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return t.Send(ctx, msg)
}

// SingleRequest is an ad-hoc message to one existing contact.
type SingleRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SingleResult identifies the accepted message and its log entry.
type SingleResult struct {
	MessageID string `json:"messageId"`
	LogID     string `json:"logId,omitempty"`
}

// SendSingle personalizes and sends one message to an owner's contact.
// A transport failure is logged and returned as a *TransportError.
func (s *Service) SendSingle(ctx context.Context, ownerID string, req SingleRequest) (*SingleResult, error) {
	if req.To == "" || req.Subject == "" || req.HTML == "" {
		return nil, fmt.Errorf("%w: to, subject and html are required", ErrInvalidMessage)
	}

	found, err := s.contacts.GetByEmails(ctx, ownerID, []string{req.To})
	if err != nil {
		return nil, fmt.Errorf("lookup contact: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrUnknownContact
	}
	part, err := s.filter.Partition(ctx, ownerID, found[:1])
	if err != nil {
		return nil, fmt.Errorf("check suppression: %w", err)
	}
	if len(part.Sendable) == 0 {
		return nil, ErrRecipientSuppressed
	}

	transport, _, err := s.OpenTransport(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	report := s.Deliver(ctx, Job{
		OwnerID:   ownerID,
		Subject:   req.Subject,
		Body:      req.HTML,
		Type:      domain.DeliverySingle,
		BatchSize: 1,
		Transport: transport,
	}, part.Sendable)
	return singleResult(report)
}

// BulkRequest is an ad-hoc message to many existing contacts.
type BulkRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	HTML       string   `json:"html"`
	BatchSize  int      `json:"batchSize"`
}

// SendBulk sends one personalized message per recipient address. Addresses
// that are not the owner's contacts, or that are suppressed, are skipped and
// counted in Report.Suppressed.
func (s *Service) SendBulk(ctx context.Context, ownerID string, req BulkRequest) (*Report, error) {
	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("%w: recipients must be a non-empty array", ErrInvalidMessage)
	}
	if req.Subject == "" || req.HTML == "" {
		return nil, fmt.Errorf("%w: subject and html are required", ErrInvalidMessage)
	}

	transport, _, err := s.OpenTransport(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	contacts, err := s.contacts.GetByEmails(ctx, ownerID, req.Recipients)
	if err != nil {
		return nil, fmt.Errorf("lookup contacts: %w", err)
	}
	part, err := s.filter.Partition(ctx, ownerID, contacts)
	if err != nil {
		return nil, fmt.Errorf("check suppression: %w", err)
	}
	sendable := make(map[string]domain.Contact, len(part.Sendable))
	for _, c := range part.Sendable {
		sendable[c.Email] = c
	}

	// Keep the caller's order; unknown and suppressed addresses drop out.
	valid := make([]domain.Contact, 0, len(req.Recipients))
	for _, addr := range req.Recipients {
		if c, ok := sendable[addr]; ok {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoRecipients
	}

	report := s.Deliver(ctx, Job{
		OwnerID:   ownerID,
		Subject:   req.Subject,
		Body:      req.HTML,
		Type:      domain.DeliveryBulk,
		BatchSize: ValidateBatchSize(req.BatchSize, s.opts.MaxBulkBatchSize, s.opts.DefaultBulkBatchSize),
		Transport: transport,
	}, valid)
	report.Suppressed = len(req.Recipients) - len(valid)

	logger.Info("bulk send complete",
		"owner_id", ownerID, "attempted", report.Attempted(), "sent", len(report.Successful),
		"failed", len(report.Failed), "suppressed", report.Suppressed)
	return report, nil
}

// TestSubject is the subject line of configuration test emails.
const TestSubject = "AWS SES Test Email"

var testBodyTmpl = template.Must(template.New("test").Parse(`
<h1>AWS SES Test Email</h1>
<p>This is a test email to verify your AWS SES configuration.</p>
<p>If you received this email, your AWS SES settings are working correctly!</p>
<p>Configuration details:</p>
<ul>
  <li>Region: {{.Region}}</li>
  <li>From Email: {{.FromEmail}}</li>
  <li>From Name: {{if .FromName}}{{.FromName}}{{else}}Not set{{end}}</li>
  <li>Verified: {{if .Verified}}Yes{{else}}No{{end}}</li>
</ul>
`))

// SendTest sends a configuration summary to the owner's from address, or to
// to when it is non-empty. The settings must be present and verified.
func (s *Service) SendTest(ctx context.Context, ownerID, to string) (*SingleResult, error) {
	transport, settings, err := s.OpenTransport(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(to) == "" {
		to = settings.FromEmail
	}

	var body bytes.Buffer
	if err := testBodyTmpl.Execute(&body, settings); err != nil {
		return nil, fmt.Errorf("render test email: %w", err)
	}

	report := s.Deliver(ctx, Job{
		OwnerID:   ownerID,
		Subject:   TestSubject,
		Body:      body.String(),
		Type:      domain.DeliveryTest,
		BatchSize: 1,
		Transport: transport,
		Raw:       true,
	}, []domain.Contact{{Email: to}})
	return singleResult(report)
}

func singleResult(r *Report) (*SingleResult, error) {
	if len(r.Failed) > 0 {
		f := r.Failed[0]
		return nil, &TransportError{Type: f.ErrorType, Message: f.Error, Err: errors.New(f.OriginalError)}
	}
	d := r.Successful[0]
	return &SingleResult{MessageID: d.MessageID, LogID: d.LogID}, nil
}

// HistoryQuery is a page request over the delivery log. Status and Type
// accept "all" or "" for no filter.
type HistoryQuery struct {
	Page      int
	Limit     int
	Status    string
	Type      string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

// Pagination describes a page position.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// HistoryPage is one page of delivery log entries, newest first.
type HistoryPage struct {
	Emails     []domain.DeliveryLog `json:"emails"`
	Pagination Pagination           `json:"pagination"`
}

const maxHistoryLimit = 100

// History returns a page of the owner's delivery log.
func (s *Service) History(ctx context.Context, ownerID string, q HistoryQuery) (*HistoryPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	filter := HistoryFilter{
		Search:    strings.TrimSpace(q.Search),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if q.Status != "" && q.Status != "all" {
		filter.Status = domain.DeliveryStatus(q.Status)
	}
	if q.Type != "" && q.Type != "all" {
		filter.Type = domain.DeliveryType(q.Type)
	}

	entries, total, err := s.logs.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list delivery history: %w", err)
	}
	if entries == nil {
		entries = []domain.DeliveryLog{}
	}

	totalPages := (total + limit - 1) / limit
	return &HistoryPage{
		Emails: entries,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalItems:  total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}, nil
}

// ValidateBatchSize returns requested clamped to maxSize, or defSize when requested
// is not positive.
func ValidateBatchSize(requested, maxSize, defSize int) int {
	if requested <= 0 {
		return defSize
	}
	if requested > maxSize {
		logger.Warn("batch size exceeds maximum", "requested", requested, "max", maxSize)
		return maxSize
	}
	return requested
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
