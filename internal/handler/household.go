package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/service"
)

type HouseholdHandler struct {
	households *service.HouseholdService
	logger     *slog.Logger
}

func NewHouseholdHandler(households *service.HouseholdService, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: households, logger: logger}
}

type householdRequest struct {
	Name      string          `json:"name"`
	SplitMode model.SplitMode `json:"split_mode"`
}

type householdPatch struct {
	Name      *string          `json:"name"`
	SplitMode *model.SplitMode `json:"split_mode"`
}

type leaveResponse struct {
	DeactivatedExpenses int64 `json:"deactivated_expenses"`
	HouseholdDeleted    bool  `json:"household_deleted"`
}

// Create handles POST /api/households
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SplitMode == "" {
		req.SplitMode = model.SplitEqual
	}
	d, err := h.households.Create(r.Context(), auth.UserID(r.Context()), req.Name, req.SplitMode)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Mine handles GET /api/households/mine
func (h *HouseholdHandler) Mine(w http.ResponseWriter, r *http.Request) {
	d, err := h.households.Mine(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if d == nil {
		writeMessage(w, http.StatusNotFound, "you are not in a household")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Update handles PATCH /api/households/{id}
func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	var p householdPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	hh, err := h.households.Update(r.Context(), auth.UserID(r.Context()), hid, model.HouseholdUpdate{Name: p.Name, SplitMode: p.SplitMode})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// Leave handles POST /api/households/{id}/leave
func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	res, err := h.households.Leave(r.Context(), auth.UserID(r.Context()), hid)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leaveResponse{
		DeactivatedExpenses: res.DeactivatedExpenses,
		HouseholdDeleted:    res.HouseholdDeleted,
	})
}

// ListExpenses handles GET /api/households/{id}/expenses
func (h *HouseholdHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	items, err := h.households.ListExpenses(r.Context(), auth.UserID(r.Context()), hid)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HouseholdHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.households.CreateExpense(r.Context(), auth.UserID(r.Context()), hid, req.input())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *HouseholdHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	var p expensePatch
	if !decodeJSON(w, r, &p) {
		return
	}
	e, err := h.households.UpdateExpense(r.Context(), auth.UserID(r.Context()), hid, id, p.update())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *HouseholdHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	hid, ok := householdID(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	if err := h.households.DeleteExpense(r.Context(), auth.UserID(r.Context()), hid, id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func householdID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid household id")
		return 0, false
	}
	return id, true
}
