package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
)

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type MeHandler struct {
	users  UserReader
	logger *slog.Logger
}

func NewMeHandler(users UserReader, logger *slog.Logger) *MeHandler {
	return &MeHandler{users: users, logger: logger}
}

// Get handles GET /api/me
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if u == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
