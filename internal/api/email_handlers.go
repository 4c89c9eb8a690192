package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ignite/campaign-mailer/internal/pkg/httputil"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

// sendResponse is the body of a successful single or test send.
type sendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	LogID     string `json:"logId,omitempty"`
}

// bulkResponse is the body of a completed bulk send.
type bulkResponse struct {
	Message string          `json:"message"`
	Results *sending.Report `json:"results"`
}

// SendEmail sends one message to a known contact.
//
//	POST /api/email/send
func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sending.SingleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.mailer.SendSingle(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, sendResponse{Message: "Email sent successfully", MessageID: res.MessageID, LogID: res.LogID})
}

// SendBulkEmail sends one message to a list of addresses in batches.
//
//	POST /api/email/bulk
func (h *Handlers) SendBulkEmail(w http.ResponseWriter, r *http.Request) {
	var req sending.BulkRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	report, err := h.mailer.SendBulk(r.Context(), OwnerFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, bulkResponse{Message: "Bulk email processing completed", Results: report})
}

// testRequest optionally overrides the test recipient.
type testRequest struct {
	To string `json:"to"`
}

// SendTestEmail sends a configuration summary to the sender address, or to
// the address given in the body.
//
//	POST /api/email/test
func (h *Handlers) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	res, err := h.mailer.SendTest(r.Context(), OwnerFrom(r.Context()), req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, sendResponse{Message: "Test email sent successfully", MessageID: res.MessageID, LogID: res.LogID})
}

// EmailHistory returns one page of the caller's delivery log.
//
//	GET /api/email/history?page=1&limit=10&status=all&type=all&search=&startDate=&endDate=
func (h *Handlers) EmailHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := ParsePagination(r, 10, 100)

	start, err := parseDate(q.Get("startDate"))
	if err != nil {
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid startDate")
		return
	}
	end, err := parseDate(q.Get("endDate"))
	if err != nil {
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_request", "invalid endDate")
		return
	}

	page, err := h.mailer.History(r.Context(), OwnerFrom(r.Context()), sending.HistoryQuery{
		Page:      p.Page,
		Limit:     p.Limit,
		Status:    q.Get("status"),
		Type:      q.Get("type"),
		Search:    q.Get("search"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, page)
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
// An empty string yields nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognised date")
}
