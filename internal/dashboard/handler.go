// Package dashboard exposes dashboard view sessions over HTTP JSON.
package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/facet"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/session"
	apperrors "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/logger"
)

const maxRequestBody = 1 << 20

// Handler implements the dashboard endpoints. cache and stats are optional;
// their endpoints answer 503 when they are nil.
type Handler struct {
	sessions *session.Manager
	cache    loader.Invalidator
	stats    analytics.StatsSource
	logger   *slog.Logger
}

func NewHandler(sessions *session.Manager, cache loader.Invalidator, stats analytics.StatsSource) *Handler {
	return &Handler{
		sessions: sessions,
		cache:    cache,
		stats:    stats,
		logger:   slog.Default().With("component", "dashboard-handler"),
	}
}

type filterRequest struct {
	Value any `json:"value"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// OpenSession mounts a new view and returns its first snapshot.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open(r.Context())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+s.ID())
	h.writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Snapshot()
	h.respond(w, r, snap, err)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFilter handles PUT /api/v1/sessions/{id}/filters/{dimension}. A null or
// empty value clears the dimension.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	dim, ok := facet.ParseDimension(r.PathValue("dimension"))
	if !ok {
		h.writeAppError(w, r, apperrors.InvalidInput("unknown filter dimension %q", r.PathValue("dimension")))
		return
	}
	var req filterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.SetFilterValue(r.Context(), dim, req.Value)
	h.respond(w, r, snap, err)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	status, ok := facet.ParseStatus(req.Status)
	if !ok {
		h.writeAppError(w, r, apperrors.InvalidInput("unknown status %q; expected one of %s", req.Status, statusList()))
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.SetStatusFilter(r.Context(), status)
	h.respond(w, r, snap, err)
}

func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Reset(r.Context())
	h.respond(w, r, snap, err)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Reload(r.Context())
	h.respond(w, r, snap, err)
}

func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeAppError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeAppError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "analytics aggregation is disabled"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats.Stats())
}

// Statuses lists the accepted status selector values.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]facet.Status{"statuses": facet.Statuses()})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, snap session.Snapshot, err error) {
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// decodeBody reads a single JSON object. Numbers stay json.Number so price
// bounds keep their exact text.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return apperrors.InvalidInput("invalid JSON body: %v", err)
	}
	return nil
}

func statusList() string {
	all := facet.Statuses()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.FromContext(r.Context()).Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.PublicMessage(err)})
}
