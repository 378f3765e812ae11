package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/service"
)

type InvitationHandler struct {
	invitations *service.InvitationService
	logger      *slog.Logger
}

func NewInvitationHandler(invitations *service.InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, logger: logger}
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Send handles POST /api/households/{id}/invitations
func (h *InvitationHandler) Send(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.invitations.Send(r.Context(), auth.UserID(r.Context()), hid, req.Email)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListForHousehold handles GET /api/households/{id}/invitations
func (h *InvitationHandler) ListForHousehold(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	invs, err := h.invitations.ListForHousehold(r.Context(), auth.UserID(r.Context()), hid)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// Pending handles GET /api/invitations/pending
func (h *InvitationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	invs, err := h.invitations.PendingForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// ByToken handles GET /api/invitations/{token}
func (h *InvitationHandler) ByToken(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitations.ByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Accept handles POST /api/invitations/{token}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	hh, err := h.invitations.Accept(r.Context(), auth.UserID(r.Context()), r.PathValue("token"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// Decline handles POST /api/invitations/{token}/decline
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if err := h.invitations.Decline(r.Context(), r.PathValue("token")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Revoke handles DELETE /api/invitations/{id}
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid invitation id")
		return
	}
	if err := h.invitations.Revoke(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
