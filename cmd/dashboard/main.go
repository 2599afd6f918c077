// Command dashboard serves the listing facet-filter API behind the rental
// admin dashboard.
//
// Each dashboard view opens a session, which loads the full property
// collection (REST API or PostgreSQL, optionally cached in Redis) and owns a
// facet engine. Filter changes are published to Kafka as analytics events.
//
// Usage:
//
//	go run ./cmd/dashboard [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/dashboard"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/session"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting dashboard service", "port", cfg.Server.Port, "loader_source", cfg.Loader.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker(0)
	deps := loader.Deps{Metrics: m}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, listing cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			deps.Cache = redisClient
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("listing cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	needDB := cfg.Loader.Source == loader.SourcePostgres || cfg.Analytics.SnapshotInterval > 0
	if needDB {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			if cfg.Loader.Source == loader.SourcePostgres {
				slog.Error("failed to connect to postgres", "error", err)
				os.Exit(1)
			}
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			deps.DB = db
			checker.Register("postgres", health.Ping(db.Ping, cfg.Loader.Source == loader.SourcePostgres))
		}
	}

	listings, err := loader.New(cfg, deps)
	if err != nil {
		slog.Error("failed to create listing loader", "error", err)
		os.Exit(1)
	}
	if _, ok := loader.CircuitState(listings); ok {
		checker.Register("listing_api", func(ctx context.Context) health.ComponentHealth {
			state, _ := loader.CircuitState(listings)
			if state == resilience.StateClosed {
				return health.ComponentHealth{Status: health.StatusUp}
			}
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		})
	}
	var invalidator loader.Invalidator
	if inv, ok := listings.(loader.Invalidator); ok {
		invalidator = inv
	}

	var (
		sinks []session.EventSink
		stats analytics.StatsSource
	)
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.FilterEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, m)
		collector.Start(ctx)
		defer collector.Close()
		sinks = append(sinks, collector)
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.FilterEvents)
	}
	if cfg.Analytics.Aggregate {
		agg := analytics.NewAggregator()
		sinks = append(sinks, agg)
		stats = agg
		if deps.DB != nil && cfg.Analytics.SnapshotInterval > 0 {
			store := aggregator.NewStore(deps.DB)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create analytics snapshot table", "error", err)
			} else {
				saved := store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
				defer func() { <-saved }()
			}
		}
	}

	manager := session.NewManager(listings, session.MultiSink(sinks...), cfg.Sessions, m)
	manager.Start(ctx)

	h := dashboard.NewHandler(manager, invalidator, stats)
	router := dashboard.NewRouter(h, dashboard.RouterConfig{
		CORS:           cfg.CORS,
		RequestTimeout: cfg.Server.WriteTimeout,
		Metrics:        m,
		Health:         checker,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		manager.CloseAll(shutdownCtx)
	}()

	slog.Info("dashboard service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped

	slog.Info("dashboard service stopped")
}
