package dashboard

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/middleware"
)

// RouterConfig carries the optional pieces of the middleware chain.
type RouterConfig struct {
	CORS           config.CORSConfig
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	Health         *health.Checker
}

// NewRouter builds the dashboard HTTP handler.
//
// Route table:
//
//	POST   /api/v1/sessions                          → open view session
//	GET    /api/v1/sessions/{id}                     → snapshot
//	DELETE /api/v1/sessions/{id}                     → close view session
//	PUT    /api/v1/sessions/{id}/filters/{dimension} → set one filter value
//	PUT    /api/v1/sessions/{id}/status              → set status selector
//	POST   /api/v1/sessions/{id}/reset               → clear filters
//	POST   /api/v1/sessions/{id}/reload              → reload collection
//	GET    /api/v1/statuses                          → status selector values
//	POST   /api/v1/cache/invalidate                  → drop cached collection
//	GET    /api/v1/analytics                         → aggregated filter analytics
//	GET    /health/live, /health/ready               → health checks
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sessions", h.OpenSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.CloseSession)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/filters/{dimension}", h.SetFilter)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/status", h.SetStatus)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", h.ResetFilters)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/statuses", h.Statuses)

	mux.HandleFunc("POST /api/v1/cache/invalidate", h.InvalidateCache)
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)

	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}

	var chain http.Handler = mux
	chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	if cfg.Metrics != nil {
		chain = pkgmw.Metrics(cfg.Metrics)(chain)
	}
	chain = newCORS(cfg.CORS).Handler(chain)
	chain = pkgmw.RequestID(chain)
	return chain
}

func newCORS(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", pkgmw.RequestIDHeader},
		ExposedHeaders: []string{pkgmw.RequestIDHeader, "Location"},
		MaxAge:         cfg.MaxAge,
	})
}
