package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/service"
)

// LedgerHandler serves CRUD for a user's incomes, expenses, pockets and tags.
type LedgerHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

func NewLedgerHandler(ledger *service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

type incomeRequest struct {
	Name      string       `json:"name"`
	Amount    int64        `json:"amount"`
	Period    model.Period `json:"period"`
	StartDate *model.Date  `json:"start_date"`
	EndDate   *model.Date  `json:"end_date"`
}

type incomePatch struct {
	Name         *string       `json:"name"`
	Amount       *int64        `json:"amount"`
	Period       *model.Period `json:"period"`
	StartDate    *model.Date   `json:"start_date"`
	EndDate      *model.Date   `json:"end_date"`
	ClearEndDate bool          `json:"clear_end_date"`
}

type expenseRequest struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	TagID  *int64 `json:"tag_id"`
	model.ScheduleFields
}

func (req expenseRequest) input() model.ExpenseInput {
	return model.ExpenseInput{Name: req.Name, Amount: req.Amount, TagID: req.TagID, Schedule: req.ScheduleFields}
}

// expensePatch merges any schedule fields onto the stored schedule.
type expensePatch struct {
	Name         *string `json:"name"`
	Amount       *int64  `json:"amount"`
	Active       *bool   `json:"active"`
	TagID        *int64  `json:"tag_id"`
	ClearTag     bool    `json:"clear_tag"`
	ClearEndDate bool    `json:"clear_end_date"`
	model.ScheduleFields
}

func (p expensePatch) update() model.ExpenseUpdate {
	u := model.ExpenseUpdate{
		Name:     p.Name,
		Amount:   p.Amount,
		Active:   p.Active,
		TagID:    p.TagID,
		ClearTag: p.ClearTag,
		ClearEnd: p.ClearEndDate,
	}
	if !p.ScheduleFields.Empty() {
		s := p.ScheduleFields
		u.Schedule = &s
	}
	return u
}

type pocketRequest struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type pocketPatch struct {
	Name   *string `json:"name"`
	Amount *int64  `json:"amount"`
}

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type tagPatch struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// Incomes

func (h *LedgerHandler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListIncomes(r.Context(), auth.UserID(r.Context()))
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *LedgerHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := h.ledger.CreateIncome(r.Context(), auth.UserID(r.Context()), model.IncomeInput{
		Name:      req.Name,
		Amount:    req.Amount,
		Period:    req.Period,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	h.respond(w, r, http.StatusCreated, in, err)
}

func (h *LedgerHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var p incomePatch
	if !decodeJSON(w, r, &p) {
		return
	}
	in, err := h.ledger.UpdateIncome(r.Context(), auth.UserID(r.Context()), id, model.IncomeUpdate{
		Name:      p.Name,
		Amount:    p.Amount,
		Period:    p.Period,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		ClearEnd:  p.ClearEndDate,
	})
	h.respond(w, r, http.StatusOK, in, err)
}

func (h *LedgerHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, h.ledger.DeleteIncome(r.Context(), auth.UserID(r.Context()), id))
}

// Expenses

func (h *LedgerHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListExpenses(r.Context(), auth.UserID(r.Context()))
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *LedgerHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.ledger.CreateExpense(r.Context(), auth.UserID(r.Context()), req.input())
	h.respond(w, r, http.StatusCreated, e, err)
}

func (h *LedgerHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var p expensePatch
	if !decodeJSON(w, r, &p) {
		return
	}
	e, err := h.ledger.UpdateExpense(r.Context(), auth.UserID(r.Context()), id, p.update())
	h.respond(w, r, http.StatusOK, e, err)
}

func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, h.ledger.DeleteExpense(r.Context(), auth.UserID(r.Context()), id))
}

// Pockets

func (h *LedgerHandler) ListPockets(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListPockets(r.Context(), auth.UserID(r.Context()))
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *LedgerHandler) CreatePocket(w http.ResponseWriter, r *http.Request) {
	var req pocketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.ledger.CreatePocket(r.Context(), auth.UserID(r.Context()), req.Name, req.Amount)
	h.respond(w, r, http.StatusCreated, p, err)
}

func (h *LedgerHandler) UpdatePocket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req pocketPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.ledger.UpdatePocket(r.Context(), auth.UserID(r.Context()), id, model.PocketUpdate{Name: req.Name, Amount: req.Amount})
	h.respond(w, r, http.StatusOK, p, err)
}

func (h *LedgerHandler) DeletePocket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, h.ledger.DeletePocket(r.Context(), auth.UserID(r.Context()), id))
}

// Tags

func (h *LedgerHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListTags(r.Context(), auth.UserID(r.Context()))
	h.respond(w, r, http.StatusOK, items, err)
}

func (h *LedgerHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.ledger.CreateTag(r.Context(), auth.UserID(r.Context()), req.Name, req.Color)
	h.respond(w, r, http.StatusCreated, t, err)
}

func (h *LedgerHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req tagPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.ledger.UpdateTag(r.Context(), auth.UserID(r.Context()), id, model.TagUpdate{Name: req.Name, Color: req.Color})
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *LedgerHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.noContent(w, r, h.ledger.DeleteTag(r.Context(), auth.UserID(r.Context()), id))
}

func (h *LedgerHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *LedgerHandler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, status, v)
}

func (h *LedgerHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
