package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/facet"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
)

// Manager tracks open sessions and reaps idle ones.
type Manager struct {
	loader  loader.Loader
	sink    EventSink
	cfg     config.SessionConfig
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. sink and m may be nil.
func NewManager(l loader.Loader, sink EventSink, cfg config.SessionConfig, m *metrics.Metrics) *Manager {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 500
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Manager{
		loader:   l,
		sink:     sink,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
		logger:   slog.Default().With("component", "session-manager"),
		sessions: make(map[string]*Session),
	}
}

// Open mounts a new view: it loads the collection and initializes a fresh
// engine. A failed load still opens the session, over an empty collection,
// with the error reported on its snapshot.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	if m.Len() >= m.cfg.MaxSessions {
		return nil, m.limitError()
	}

	s := &Session{
		id:       uuid.NewString(),
		openedAt: m.now().UTC(),
		loader:   m.loader,
		sink:     m.sink,
		metrics:  m.metrics,
		now:      m.now,
		engine:   facet.New(),
	}
	s.touch()
	s.load(ctx)
	outcome := "ok"
	if s.loadErr != nil {
		outcome = "load_error"
	}

	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, m.limitError()
	}
	m.sessions[s.id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionsOpenedTotal.WithLabelValues(outcome).Inc()
		m.metrics.ActiveSessions.Set(float64(active))
	}

	s.mu.Lock()
	s.emit(ctx, analytics.FilterEvent{Type: analytics.EventSessionOpen})
	total := s.engine.Total()
	s.mu.Unlock()

	m.logger.Info("session opened", "session_id", s.id, "listings", total, "outcome", outcome, "active", active)
	return s, nil
}

// Get returns the open session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errClosed(id)
	}
	return s, nil
}

// Close unmounts the session with id.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return errClosed(id)
	}
	s.close(ctx)
	m.setActive(active)
	m.logger.Info("session closed", "session_id", id, "active", active)
	return nil
}

// CloseAll closes every open session, for shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.close(ctx)
	}
	m.setActive(0)
	if len(sessions) > 0 {
		m.logger.Info("closed all sessions", "count", len(sessions))
	}
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start runs the idle sweep every SweepInterval until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	m.logger.Info("idle sweep started", "interval", m.cfg.SweepInterval, "idle_timeout", m.cfg.IdleTimeout)
}

// sweep closes sessions idle longer than IdleTimeout and returns how many.
func (m *Manager) sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		s.close(ctx)
	}
	if len(idle) > 0 {
		m.setActive(active)
		m.logger.Info("reaped idle sessions", "count", len(idle), "active", active)
	}
	return len(idle)
}

func (m *Manager) setActive(n int) {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(n))
	}
}

func (m *Manager) limitError() error {
	return apperrors.Newf(apperrors.ErrSessionLimit, http.StatusTooManyRequests,
		"too many open sessions (max %d)", m.cfg.MaxSessions)
}
