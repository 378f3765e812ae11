package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).Create(context.Background(), "a@example.com", "Alice")
	require.NoError(t, err)

	tokens, err := auth.NewTokens([]byte(strings.Repeat("x", auth.MinKeySize)), time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue(auth.AuthContext{UserID: u.ID, Email: u.Email})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, tokens, Options{}, logger)
	t.Cleanup(srv.Drain)
	return srv.Router(), token
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	h, _ := newTestServer(t)
	rec := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, token := newTestServer(t)

	rec := serve(h, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@example.com"`)
}

func TestInvitationRoutes(t *testing.T) {
	h, token := newTestServer(t)

	// pending needs auth and must not be treated as a token lookup
	rec := serve(h, http.MethodGet, "/api/invitations/pending", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(h, http.MethodGet, "/api/invitations/pending", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/invitations/unknown-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPost, "/api/invitations/unknown-token/accept", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = serve(h, http.MethodPost, "/api/invitations/unknown-token/accept", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptionalFeaturesDisabled(t *testing.T) {
	h, token := newTestServer(t)

	rec := serve(h, http.MethodGet, "/api/push/vapid-key", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/api/snapshots/2024/1/archived", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
