package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/httputil"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

// Join handles POST /join
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var in signup.JoinInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	su, err := h.signups.Join(r.Context(), in)
	switch {
	case errors.Is(err, signup.ErrEmailRequired), errors.Is(err, signup.ErrInvalidEmail):
		httputil.BadRequest(w, err.Error())
		return
	case errors.Is(err, signup.ErrDuplicateEmail):
		httputil.Conflict(w, "This email is already on our waitlist!")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.Created(w, httputil.MessageResponse{
		Message: "Successfully joined the waitlist! We'll be in touch soon.",
		Data:    su,
	})
}

// ListUsers handles GET /api/admin/users?status=pending&limit=100
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := signup.ListFilter{Status: domain.SignupStatus(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	users, err := h.signups.List(r.Context(), f)
	if errors.Is(err, signup.ErrInvalidStatus) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if users == nil {
		users = []domain.Signup{}
	}
	httputil.OK(w, map[string]any{"users": users, "total": len(users)})
}

// UpdateUser handles PUT /api/admin/users/{id}
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var in signup.UpdateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	su, err := h.signups.Update(r.Context(), chi.URLParam(r, "id"), in)
	switch {
	case errors.Is(err, signup.ErrNotFound):
		httputil.NotFound(w, "User not found")
		return
	case errors.Is(err, signup.ErrInvalidStatus):
		httputil.BadRequest(w, err.Error())
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}
	httputil.Message(w, "User updated successfully", su)
}

// ExportUsers handles GET /api/admin/users/export. The CSV is built in
// memory first so a store failure still yields a clean JSON error.
func (h *Handlers) ExportUsers(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.signups.ExportCSV(r.Context(), &buf); err != nil {
		httputil.InternalError(w, err)
		return
	}

	filename := fmt.Sprintf("waitlist_users_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
