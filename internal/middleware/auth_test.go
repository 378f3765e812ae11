package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/store"
)

func setupAuthMiddleware(t *testing.T) (*auth.Tokens, *store.UserStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	u, err := users.Create(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tokens, err := auth.NewTokens([]byte(strings.Repeat("s", auth.MinKeySize)), time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return tokens, users, u
}

func mustNotReach(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoToken(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(mustNotReach(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "missing auth token") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(mustNotReach(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthUnknownUser(t *testing.T) {
	tokens, users, _ := setupAuthMiddleware(t)
	raw, _ := tokens.Issue(auth.AuthContext{UserID: 999})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(mustNotReach(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	tokens, users, u := setupAuthMiddleware(t)
	raw, _ := tokens.Issue(auth.AuthContext{UserID: u.ID})

	var gotAC auth.AuthContext
	handler := RequireAuth(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", gotAC.UserID, u.ID)
	}
	if gotAC.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", gotAC.Email, "alice@example.com")
	}
}

func TestRequireAuthQueryTokenOnlyForWebsocket(t *testing.T) {
	tokens, users, u := setupAuthMiddleware(t)
	raw, _ := tokens.Issue(auth.AuthContext{UserID: u.ID})

	req := httptest.NewRequest("GET", "/api/ws?access_token="+raw, nil)
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(mustNotReach(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("plain request status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	reached := false
	handler := RequireAuth(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	req = httptest.NewRequest("GET", "/api/ws?access_token="+raw, nil)
	req.Header.Set("Upgrade", "websocket")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !reached {
		t.Error("websocket upgrade with access_token should be authenticated")
	}
}
