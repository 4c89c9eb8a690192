package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/campaign-mailer/internal/pkg/httputil"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
)

// campaignSendResponse is the body of a completed campaign send.
type campaignSendResponse struct {
	Message string                   `json:"message"`
	Results *campaign.DispatchResult `json:"results"`
}

// SendCampaign dispatches a stored campaign to its recipients.
//
//	POST /api/campaigns/{id}/send
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner := OwnerFrom(r.Context())

	res, err := h.campaigns.Dispatch(r.Context(), id, owner)
	if err != nil && res != nil {
		// Mail went out but the campaign row could not be finalized.
		logger.Error("campaign finalize failed", "campaign_id", id, "error", err)
		httputil.JSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:   "Campaign was sent but its status could not be updated",
			Code:    "finalize_failed",
			Details: res,
		})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.OK(w, campaignSendResponse{
		Message: fmt.Sprintf("Campaign sent successfully. %d recipients were unsubscribed and filtered out.", res.Suppressed),
		Results: res,
	})
}
