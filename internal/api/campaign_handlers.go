package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pitchperfect/waitlist/internal/auth"
	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/httputil"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/dispatch"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

// Campaign create actions.
const (
	ActionSaveDraft = "save_draft"
	ActionSendNow   = "send_now"
)

// CreateCampaignRequest is the body of POST /api/admin/campaigns.
type CreateCampaignRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
	Action  string `json:"action"`
}

// Campaign history page sizes. The admin table shows 50 rows by default.
const (
	campaignPageSize    = 50
	campaignPageSizeMax = 200
)

// CampaignPage describes one page of the campaign history, newest first.
type CampaignPage struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// ListCampaigns handles GET /api/admin/campaigns?status=&page=&limit=
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.CampaignStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		httputil.BadRequest(w, "status must be draft, sent or failed")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	switch {
	case limit < 1:
		limit = campaignPageSize
	case limit > campaignPageSizeMax:
		limit = campaignPageSizeMax
	}

	// One extra row tells us whether another page exists.
	campaigns, err := h.campaigns.List(r.Context(), campaign.ListFilter{Status: status, Limit: limit + 1, Offset: (page - 1) * limit})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	p := CampaignPage{Page: page, Limit: limit}
	if len(campaigns) > limit {
		campaigns = campaigns[:limit]
		p.HasMore = true
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	httputil.OK(w, map[string]any{"campaigns": campaigns, "pagination": p})
}

// GetCampaign handles GET /api/admin/campaigns/{id}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, campaign.ErrNotFound) {
		httputil.NotFound(w, "Campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

// CreateCampaign handles POST /api/admin/campaigns. With action send_now
// the campaign is saved and dispatched in the same request.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	input := campaign.DraftInput{Subject: req.Subject, Content: req.Content}

	switch strings.TrimSpace(req.Action) {
	case "", ActionSaveDraft:
		c, err := h.campaigns.SaveDraft(r.Context(), input, auth.Actor(r))
		if err != nil {
			writeDispatchError(w, err)
			return
		}
		httputil.Created(w, httputil.MessageResponse{Message: "Campaign saved as draft", Data: c})
	case ActionSendNow:
		outcome, err := h.dispatch.SendNew(r.Context(), input, auth.Actor(r))
		if err != nil {
			writeDispatchError(w, err)
			return
		}
		h.writeOutcome(w, outcome)
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown action %q (want %s or %s)", req.Action, ActionSaveDraft, ActionSendNow))
	}
}

// SendCampaign handles POST /api/admin/campaigns/{id}/send
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.dispatch.SendDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// SendTestEmail handles POST /api/admin/campaigns/test
func (h *Handlers) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	_, err := h.dispatch.SendTest(r.Context(), req.Email)
	if errors.Is(err, dispatch.ErrValidation) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "Failed to send test email: "+err.Error())
		return
	}

	msg := fmt.Sprintf("Test email sent successfully to %s", strings.TrimSpace(req.Email))
	if mode := h.dispatch.TransportMode(); mode != sending.ModeSimulation {
		httputil.Message(w, msg, map[string]string{"mode": mode})
		return
	}
	httputil.Message(w, msg+" (simulation mode, nothing was delivered)", map[string]string{"mode": sending.ModeSimulation})
}

// DeleteCampaign handles DELETE /api/admin/campaigns/{id}
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	err := h.campaigns.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, campaign.ErrNotFound) {
		httputil.NotFound(w, "Campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Message(w, "Campaign deleted successfully", nil)
}
