package api

import (
	"net/http"

	"github.com/ignite/campaign-mailer/internal/pkg/httputil"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
)

// Unsubscribe records an unsubscribe for an address. Public: reached from
// the footer link in delivered mail, so the entry is keyed by contact only
// and any owner header is ignored.
//
//	POST /api/email/unsubscribe
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req suppression.UnsubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.OwnerID = ""

	if _, err := h.unsubscribes.Unsubscribe(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"message": "Successfully unsubscribed from emails"})
}

// UnsubscribeStatus reports whether an address is unsubscribed, keyed by
// contact id or by the legacy account id.
//
//	GET /api/email/unsubscribe/status?email=&contactId=
//	GET /api/email/unsubscribe/status?email=&userId=
func (h *Handlers) UnsubscribeStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := h.unsubscribes.Status(r.Context(), q.Get("email"), q.Get("contactId"), q.Get("userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, status)
}
