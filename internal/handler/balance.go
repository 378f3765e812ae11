package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/service"
)

const defaultProjectionMonths = 12

// BalanceHandler serves computed balances, projections and stats.
type BalanceHandler struct {
	balances *service.BalanceService
	stats    *service.StatsService
	now      func() time.Time
	logger   *slog.Logger
}

func NewBalanceHandler(balances *service.BalanceService, stats *service.StatsService, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{balances: balances, stats: stats, now: time.Now, logger: logger}
}

// yearMonth reads year and month, defaulting to the current month.
func (h *BalanceHandler) yearMonth(r *http.Request) (int, int, error) {
	now := h.now()
	year, err := intParam(r, "year", now.Year())
	if err != nil {
		return 0, 0, err
	}
	month, err := intParam(r, "month", int(now.Month()))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// Monthly handles GET /api/balance?year=&month=
func (h *BalanceHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.yearMonth(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	b, err := h.balances.MonthlyBalance(r.Context(), auth.UserID(r.Context()), year, month)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Projection handles GET /api/balance/projection?year=&month=&months=
func (h *BalanceHandler) Projection(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.yearMonth(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	months, err := intParam(r, "months", defaultProjectionMonths)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	out, err := h.balances.Projection(r.Context(), auth.UserID(r.Context()), year, month, months)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ByTag handles GET /api/stats/tags?year=&month=
func (h *BalanceHandler) ByTag(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.yearMonth(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	totals, err := h.stats.ExpensesByTag(r.Context(), auth.UserID(r.Context()), year, month)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// Trend handles GET /api/stats/trend?months=
func (h *BalanceHandler) Trend(w http.ResponseWriter, r *http.Request) {
	months, err := intParam(r, "months", service.DefaultTrendMonths)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	points, err := h.stats.MonthlyTrend(r.Context(), auth.UserID(r.Context()), months)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
