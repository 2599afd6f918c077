// Package loader fetches the full listing collection a dashboard view filters
// over. Sources are the platform REST API and the properties table in
// PostgreSQL; either can sit behind a Redis cache.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/resilience"
)

const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

// Loader returns the complete, normalized listing collection.
type Loader interface {
	Load(ctx context.Context) ([]listing.Listing, error)
}

// Invalidator is implemented by loaders that keep a cached copy.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Deps carries the clients a Loader may need. Cache may be nil to disable
// caching; DB is only required for the postgres source.
type Deps struct {
	DB         *postgres.Client
	Cache      Store
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// New builds the loader selected by cfg.Loader.Source, instrumented and,
// when deps.Cache is set, wrapped in a CachedLoader.
func New(cfg *config.Config, deps Deps) (Loader, error) {
	var source Loader
	switch cfg.Loader.Source {
	case SourceAPI:
		source = NewAPILoader(cfg.Loader, deps.HTTPClient, deps.Metrics)
	case SourcePostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("loader source %q requires a postgres client", SourcePostgres)
		}
		source = NewPostgresLoader(deps.DB.DB)
	default:
		return nil, fmt.Errorf("unknown loader source %q", cfg.Loader.Source)
	}

	source = &instrumented{
		source: cfg.Loader.Source,
		next:   source,
		m:      deps.Metrics,
		logger: slog.Default().With("component", "loader", "source", cfg.Loader.Source),
	}
	if deps.Cache != nil {
		cached := NewCachedLoader(source, deps.Cache, cfg.Redis.CacheTTL, deps.Metrics)
		cached.SetLoadTimeout(loadBudget(cfg.Loader))
		return cached, nil
	}
	return source, nil
}

// loadBudget is the longest a retried REST load can take: every attempt
// timing out plus the maximum backoff between attempts.
func loadBudget(cfg config.LoaderConfig) time.Duration {
	if cfg.Timeout <= 0 || cfg.MaxAttempts <= 0 {
		return 0
	}
	attempts := time.Duration(cfg.MaxAttempts)
	return cfg.Timeout*attempts + cfg.MaxBackoff*(attempts-1)
}

// CircuitState reports the breaker state of the REST loader inside l,
// looking through instrumentation and caching. ok is false for other sources.
func CircuitState(l Loader) (state resilience.State, ok bool) {
	for {
		switch v := l.(type) {
		case *APILoader:
			return v.BreakerState(), true
		case *instrumented:
			l = v.next
		case *CachedLoader:
			l = v.next
		default:
			return resilience.StateClosed, false
		}
	}
}

// instrumented records load latency and outcome per source.
type instrumented struct {
	source string
	next   Loader
	m      *metrics.Metrics
	logger *slog.Logger
}

func (i *instrumented) Load(ctx context.Context) ([]listing.Listing, error) {
	start := time.Now()
	listings, err := i.next.Load(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		i.logger.Warn("listing load failed", "error", err, "elapsed", elapsed)
	} else {
		i.logger.Debug("listings loaded", "count", len(listings), "elapsed", elapsed)
	}
	if i.m != nil {
		i.m.LoaderDuration.WithLabelValues(i.source, outcome).Observe(elapsed.Seconds())
		if err == nil {
			i.m.LoadedListings.Set(float64(len(listings)))
		}
	}
	return listings, err
}
