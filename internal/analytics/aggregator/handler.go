package aggregator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// SnapshotLister is the read side of Store.
type SnapshotLister interface {
	List(ctx context.Context, limit int) ([]Snapshot, error)
}

// Handler serves persisted snapshots over HTTP.
type Handler struct {
	store  SnapshotLister
	logger *slog.Logger
}

func NewHandler(store SnapshotLister) *Handler {
	return &Handler{
		store:  store,
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

// Snapshots handles GET /api/v1/analytics/snapshots?limit=N.
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		return
	}
	snaps, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing snapshots failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"count":     len(snaps),
	})
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxListLimit), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
