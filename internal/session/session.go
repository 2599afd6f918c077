// Package session owns the facet engines behind open dashboard views. A view
// opens a Session when it mounts and closes it when it unmounts; every engine
// call for that view goes through the Session, which serializes them.
package session

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/facet"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/loader"
	apperrors "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
)

// EventSink receives one event per session transition. Track must not block.
type EventSink interface {
	Track(event analytics.FilterEvent)
}

type nopSink struct{}

func (nopSink) Track(analytics.FilterEvent) {}

// MultiSink forwards every event to each non-nil sink in order.
func MultiSink(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nopSink{}
	}
	return out
}

type multiSink []EventSink

func (m multiSink) Track(event analytics.FilterEvent) {
	for _, s := range m {
		s.Track(event)
	}
}

// Snapshot is everything a view renders.
type Snapshot struct {
	ID            string            `json:"id"`
	State         facet.FilterState `json:"state"`
	Facets        facet.Facets      `json:"facets"`
	Listings      []listing.Listing `json:"listings"`
	Visible       int               `json:"visible"`
	Total         int               `json:"total"`
	ActiveFilters int               `json:"active_filters"`
	LoadError     string            `json:"load_error,omitempty"`
	LoadedAt      time.Time         `json:"loaded_at"`
	OpenedAt      time.Time         `json:"opened_at"`
}

// Session is one mounted dashboard view.
type Session struct {
	id       string
	openedAt time.Time
	loader   loader.Loader
	sink     EventSink
	metrics  *metrics.Metrics
	now      func() time.Time

	// lastUsed is unix nanoseconds, read by the idle sweep without mu.
	lastUsed atomic.Int64

	mu       sync.Mutex
	engine   *facet.Engine
	loadErr  error
	loadedAt time.Time
	closed   bool
}

func (s *Session) ID() string { return s.id }

// SetFilterValue applies one dimension change.
func (s *Session) SetFilterValue(ctx context.Context, dim facet.Dimension, value any) (Snapshot, error) {
	return s.mutate(ctx, "set_filter", string(dim), func(e *facet.Engine) {
		e.SetFilterValue(dim, value)
	}, func(state facet.FilterState) analytics.FilterEvent {
		return analytics.FilterEvent{
			Type:      analytics.EventFilterChange,
			Dimension: string(dim),
			Value:     dimensionValue(state, dim),
		}
	})
}

// SetStatusFilter changes the status selector.
func (s *Session) SetStatusFilter(ctx context.Context, status facet.Status) (Snapshot, error) {
	return s.mutate(ctx, "set_status", "status", func(e *facet.Engine) {
		e.SetStatusFilter(status)
	}, func(state facet.FilterState) analytics.FilterEvent {
		return analytics.FilterEvent{Type: analytics.EventStatusChange, Status: string(state.Status)}
	})
}

// Reset clears every filter.
func (s *Session) Reset(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, "reset", "all", func(e *facet.Engine) {
		e.Reset()
	}, func(facet.FilterState) analytics.FilterEvent {
		return analytics.FilterEvent{Type: analytics.EventReset}
	})
}

// Reload fetches the collection again and re-initializes the engine. The
// session lock is held for the whole load, so reloads never overlap. A failed
// load keeps the previous collection and reports the error on the snapshot.
func (s *Session) Reload(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, errClosed(s.id)
	}
	s.touch()

	listings, err := s.loader.Load(ctx)
	s.loadErr = err
	if err != nil {
		logger.FromContext(s.logContext(ctx)).Warn("reload failed, keeping previous collection", "error", err)
	} else {
		s.engine.Initialize(listings)
		s.loadedAt = s.now().UTC()
	}
	s.emit(ctx, analytics.FilterEvent{Type: analytics.EventReload})
	return s.snapshotLocked(), nil
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, errClosed(s.id)
	}
	s.touch()
	return s.snapshotLocked(), nil
}

// load runs the initial fetch. On failure the engine keeps its empty
// collection.
func (s *Session) load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listings, err := s.loader.Load(ctx)
	s.loadErr = err
	if err != nil {
		logger.FromContext(s.logContext(ctx)).Warn("initial load failed, starting empty", "error", err)
		return
	}
	s.engine.Initialize(listings)
	s.loadedAt = s.now().UTC()
}

// close marks the session unusable and emits the close event. It reports
// false if the session was already closed.
func (s *Session) close(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.emit(ctx, analytics.FilterEvent{Type: analytics.EventSessionClose})
	return true
}

func (s *Session) mutate(
	ctx context.Context,
	op, dimension string,
	apply func(*facet.Engine),
	describe func(facet.FilterState) analytics.FilterEvent,
) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, errClosed(s.id)
	}
	s.touch()

	start := time.Now()
	apply(s.engine)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.FilterOpsTotal.WithLabelValues(op, dimension).Inc()
		s.metrics.FilterLatency.WithLabelValues(op).Observe(elapsed.Seconds())
		s.metrics.VisibleListings.Observe(float64(s.engine.VisibleCount()))
	}
	s.emit(ctx, describe(s.engine.State()))
	logger.FromContext(s.logContext(ctx)).Debug("filter applied",
		"op", op,
		"dimension", dimension,
		"visible", s.engine.VisibleCount(),
		"elapsed", elapsed,
	)
	return s.snapshotLocked(), nil
}

func (s *Session) emit(ctx context.Context, event analytics.FilterEvent) {
	state := s.engine.State()
	event.SessionID = s.id
	event.Filters = activeFilters(state)
	if event.Status == "" && state.Status != facet.StatusAll {
		event.Status = string(state.Status)
	}
	event.Visible = s.engine.VisibleCount()
	event.Total = s.engine.Total()
	event.RequestID = logger.RequestID(ctx)
	event.Timestamp = s.now().UTC()
	s.sink.Track(event)
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.engine.State()
	snap := Snapshot{
		ID:            s.id,
		State:         state,
		Facets:        s.engine.Facets(),
		Listings:      s.engine.Visible(),
		Visible:       s.engine.VisibleCount(),
		Total:         s.engine.Total(),
		ActiveFilters: state.ActiveCount(),
		LoadedAt:      s.loadedAt,
		OpenedAt:      s.openedAt,
	}
	if s.loadErr != nil {
		snap.LoadError = apperrors.PublicMessage(s.loadErr)
	}
	return snap
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) logContext(ctx context.Context) context.Context {
	return logger.WithSessionID(ctx, s.id)
}

func errClosed(id string) error {
	return apperrors.Newf(apperrors.ErrSessionNotFound, http.StatusNotFound, "session %s not found", id)
}

// activeFilters lists the constrained dimensions of state by name.
func activeFilters(state facet.FilterState) map[string]string {
	out := make(map[string]string)
	if state.City != "" {
		out[string(facet.DimCity)] = state.City
	}
	if state.Region != "" {
		out[string(facet.DimRegion)] = state.Region
	}
	if state.Category != "" {
		out[string(facet.DimCategory)] = state.Category
	}
	if state.PriceMin != nil {
		out[string(facet.DimPriceMin)] = formatBound(*state.PriceMin)
	}
	if state.PriceMax != nil {
		out[string(facet.DimPriceMax)] = formatBound(*state.PriceMax)
	}
	if state.Status != facet.StatusAll {
		out["status"] = string(state.Status)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dimensionValue(state facet.FilterState, dim facet.Dimension) string {
	switch dim {
	case facet.DimCity:
		return state.City
	case facet.DimRegion:
		return state.Region
	case facet.DimCategory:
		return state.Category
	case facet.DimPriceMin:
		if state.PriceMin != nil {
			return formatBound(*state.PriceMin)
		}
	case facet.DimPriceMax:
		if state.PriceMax != nil {
			return formatBound(*state.PriceMax)
		}
	}
	return ""
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
