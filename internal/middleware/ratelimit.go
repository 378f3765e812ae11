package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/fintrack/internal/auth"
)

// Quota is a fixed-window request budget.
type Quota struct {
	Requests int
	Window   time.Duration
}

var (
	// InviteQuota bounds how many invitation emails one user can trigger.
	InviteQuota = Quota{Requests: 10, Window: time.Hour}
	// PushTestQuota bounds test notifications per user.
	PushTestQuota = Quota{Requests: 5, Window: time.Minute}
)

// RealIP returns the client address, preferring CF-Connecting-IP, then the
// first X-Forwarded-For hop, then RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	used    int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows. The zero value is
// not usable; call NewRateLimiter.
type RateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now, buckets: make(map[string]*bucket)}
}

// Take spends one request from key's budget. When the budget is exhausted it
// reports false and how long until the window resets.
func (rl *RateLimiter) Take(key string, q Quota) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		rl.buckets[key] = &bucket{used: 1, resetAt: now.Add(q.Window)}
		return true, 0
	}
	if b.used >= q.Requests {
		return false, b.resetAt.Sub(now)
	}
	b.used++
	return true, 0
}

// Cleanup drops buckets whose window has closed. It satisfies
// housekeeping.Cleaner.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if !now.Before(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// Limit rejects requests over q with 429 and a Retry-After header rounded up
// to whole seconds.
func Limit(rl *RateLimiter, key func(*http.Request) string, q Quota) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.Take(key(r), q)
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserKey keys limits by authenticated user, or by client IP when the
// request is anonymous.
func UserKey(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + RealIP(r)
}
