package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
)

// Memberships resolves the household a user belongs to.
type Memberships interface {
	MembershipOf(ctx context.Context, userID int64) (*model.HouseholdMember, error)
}

// HandleWebSocket upgrades an authenticated request and streams the live
// updates of the caller's household.
func HandleWebSocket(hub *Hub, members Memberships, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		m, err := members.MembershipOf(r.Context(), userID)
		if err != nil {
			logger.Error("websocket membership lookup", "user_id", userID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if m == nil {
			http.Error(w, "Not a household member", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, m.HouseholdID).Run(r.Context())
	}
}
