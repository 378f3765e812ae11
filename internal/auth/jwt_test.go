package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte(strings.Repeat("k", MinKeySize))

func TestNewTokensShortSecret(t *testing.T) {
	if _, err := NewTokens([]byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueAndParse(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	raw, err := tokens.Issue(AuthContext{UserID: 42, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ac, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ac.UserID != 42 || ac.Email != "a@example.com" {
		t.Errorf("AuthContext = %+v", ac)
	}
}

func TestParseExpired(t *testing.T) {
	tokens, _ := NewTokens(testSecret, time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := tokens.Issue(AuthContext{UserID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.now = time.Now
	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	a, _ := NewTokens(testSecret, time.Hour)
	b, _ := NewTokens([]byte(strings.Repeat("x", MinKeySize)), time.Hour)

	raw, _ := a.Issue(AuthContext{UserID: 1})
	if _, err := b.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	tokens, _ := NewTokens(testSecret, time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseBadSubject(t *testing.T) {
	tokens, _ := NewTokens(testSecret, time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "not-a-number",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
