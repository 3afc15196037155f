package api

import (
	"errors"
	"net/http"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/httputil"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/dispatch"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

// Handlers contains the HTTP handlers for the waitlist and admin console.
type Handlers struct {
	signups   *signup.Service
	campaigns *campaign.Service
	dispatch  *dispatch.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(signups *signup.Service, campaigns *campaign.Service, dispatcher *dispatch.Service) *Handlers {
	return &Handlers{
		signups:   signups,
		campaigns: campaigns,
		dispatch:  dispatcher,
	}
}

// DashboardStats is the admin dashboard payload.
type DashboardStats struct {
	*domain.SignupStats
	TransportMode string `json:"transport_mode"`
}

// GetStats handles GET /api/admin/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.signups.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	sent, err := h.campaigns.SentCount(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	stats.SentCampaigns = sent
	httputil.OK(w, DashboardStats{SignupStats: stats, TransportMode: h.dispatch.TransportMode()})
}

const campaignGoneMsg = "Campaign not found or already sent"

// writeDispatchError maps campaign and dispatch errors to HTTP responses.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrValidation):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, campaign.ErrNotDraft):
		httputil.NotFound(w, campaignGoneMsg)
	case errors.Is(err, dispatch.ErrInProgress):
		httputil.Conflict(w, "Campaign is already being sent")
	case errors.Is(err, dispatch.ErrStoreUnavailable):
		httputil.ServiceUnavailable(w, "Campaign data is temporarily unavailable, nothing was sent", err)
	default:
		httputil.InternalError(w, err)
	}
}

// DispatchResponse is the data part of a send response.
type DispatchResponse struct {
	CampaignID     string                `json:"campaign_id,omitempty"`
	Status         domain.DispatchStatus `json:"status"`
	Mode           string                `json:"mode"`
	Sent           int                   `json:"sent"`
	Attempted      int                   `json:"attempted"`
	Results        []domain.SendResult   `json:"results"`
	TransportError string                `json:"transport_error,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
}

func (h *Handlers) writeOutcome(w http.ResponseWriter, o *domain.DispatchOutcome) {
	httputil.Message(w, o.Summary(), DispatchResponse{
		CampaignID:     o.CampaignID,
		Status:         o.Status(),
		Mode:           h.dispatch.TransportMode(),
		Sent:           o.Reached(),
		Attempted:      o.Attempted(),
		Results:        o.Results,
		TransportError: o.TransportError,
		Warnings:       o.Warnings,
	})
}
