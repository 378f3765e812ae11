package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/push"
)

// SubscriptionStore persists a user's push endpoints.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, userID int64, endpoint, p256dh, auth string) (*model.PushSubscription, error)
	Unsubscribe(ctx context.Context, userID int64, endpoint string) error
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
}

// Pusher delivers a single notification.
type Pusher interface {
	VAPIDPublicKey() string
	Send(ctx context.Context, sub *model.PushSubscription, payload push.Payload) error
}

type PushHandler struct {
	subs    SubscriptionStore
	service Pusher
	logger  *slog.Logger
}

// NewPushHandler creates the handler. svc may be nil when VAPID keys are not
// configured; subscription management still works but nothing is sent.
func NewPushHandler(subs SubscriptionStore, svc Pusher, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Subscribe handles POST /api/push/subscriptions
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeMessage(w, http.StatusBadRequest, "endpoint, p256dh and auth are required")
		return
	}

	sub, err := h.subs.Subscribe(r.Context(), auth.UserID(r.Context()), req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		writeMessage(w, http.StatusBadRequest, "endpoint is required")
		return
	}
	if err := h.subs.Unsubscribe(r.Context(), auth.UserID(r.Context()), req.Endpoint); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeMessage(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// Test handles POST /api/push/test
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeMessage(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	subs, err := h.subs.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	payload := push.Payload{
		Title: "Test notification",
		Body:  "Push notifications are working.",
		URL:   "/",
	}
	sent := 0
	for i := range subs {
		if err := h.service.Send(r.Context(), &subs[i], payload); err != nil {
			h.logger.Error("test push send", "error", err)
			continue
		}
		sent++
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
