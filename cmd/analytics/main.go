// Command analytics starts the standalone filter-analytics service.
//
// It consumes filter events published by the dashboard service from Kafka,
// aggregates them in memory (events by type, top cities, regions and
// categories, status selections, zero-result filter combinations, average
// visible size) and exposes them at GET /api/v1/analytics. When
// analytics.snapshotInterval is set, stats are also persisted to PostgreSQL
// and listed at GET /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/analytics.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/analytics.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.FilterEvents, agg.HandleMessage())
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("aggregator consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.FilterEvents, "group", cfg.Kafka.ConsumerGroup)

	checker := health.NewChecker(0)
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		select {
		case <-consumed:
			return health.ComponentHealth{Status: health.StatusDown, Message: "consumer stopped"}
		default:
			return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	if cfg.Analytics.SnapshotInterval > 0 {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", health.Ping(db.Ping, false))
			store := aggregator.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create analytics snapshot table", "error", err)
			} else {
				saved := store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
				defer func() { <-saved }()
				mux.HandleFunc("GET /api/v1/analytics/snapshots", aggregator.NewHandler(store).Snapshots)
			}
		}
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
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
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
	<-consumed

	slog.Info("analytics service stopped")
}
