package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/service"
)

// ArchiveReader reads back mirrored snapshots.
type ArchiveReader interface {
	Fetch(ctx context.Context, userID int64, year, month int) (*model.Snapshot, error)
}

type SnapshotHandler struct {
	snapshots *service.SnapshotService
	archive   ArchiveReader
	logger    *slog.Logger
}

// NewSnapshotHandler creates the handler. archive may be nil when no mirror
// is configured.
func NewSnapshotHandler(snapshots *service.SnapshotService, archive ArchiveReader, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, archive: archive, logger: logger}
}

// ArchivePrevious handles POST /api/snapshots/archive
func (h *SnapshotHandler) ArchivePrevious(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.ArchivePreviousMonth(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Save handles PUT /api/snapshots/{year}/{month} with a balance body.
func (h *SnapshotHandler) Save(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	var data model.MonthlyBalance
	if !decodeJSON(w, r, &data) {
		return
	}
	data.Year, data.Month = year, month
	snap, err := h.snapshots.Save(r.Context(), auth.UserID(r.Context()), year, month, data)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Get handles GET /api/snapshots/{year}/{month}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	snap, err := h.snapshots.Get(r.Context(), auth.UserID(r.Context()), year, month)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if snap == nil {
		writeMessage(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// List handles GET /api/snapshots
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.snapshots.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// Archived handles GET /api/snapshots/{year}/{month}/archived
func (h *SnapshotHandler) Archived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeMessage(w, http.StatusNotFound, "snapshot mirror is not configured")
		return
	}
	year, month, ok := h.pathMonth(w, r)
	if !ok {
		return
	}
	snap, err := h.archive.Fetch(r.Context(), auth.UserID(r.Context()), year, month)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if snap == nil {
		writeMessage(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SnapshotHandler) pathMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := intParam(r, "year", 0)
	if err != nil {
		writeError(w, h.logger, r, err)
		return 0, 0, false
	}
	month, err := intParam(r, "month", 0)
	if err != nil {
		writeError(w, h.logger, r, err)
		return 0, 0, false
	}
	return year, month, true
}
