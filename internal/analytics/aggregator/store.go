// Package aggregator persists periodic snapshots of filter analytics to
// PostgreSQL.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/postgres"
)

// Store writes snapshots to the filter_analytics_snapshots table:
//
//	CREATE TABLE filter_analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	pg     *postgres.Client
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(pg *postgres.Client) *Store {
	return &Store{
		pg:     pg,
		db:     pg.DB,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// Snapshot is one persisted Stats value.
type Snapshot struct {
	ID         int64           `json:"id"`
	CapturedAt time.Time       `json:"captured_at"`
	Stats      analytics.Stats `json:"stats"`
}

// EnsureSchema creates the snapshot table and its time index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	err := s.pg.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS filter_analytics_snapshots (
				id          BIGSERIAL PRIMARY KEY,
				data        JSONB NOT NULL,
				captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS filter_analytics_snapshots_captured_at_idx
			ON filter_analytics_snapshots (captured_at DESC)`)
		return err
	})
	if err != nil {
		return fmt.Errorf("creating filter_analytics_snapshots: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, stats analytics.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	err = s.pg.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO filter_analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
			data, time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_events", stats.TotalEvents)
	return nil
}

// List returns up to limit snapshots, newest first. Rows that no longer
// decode are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, captured_at, data FROM filter_analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap Snapshot
			data []byte
		)
		if err := rows.Scan(&snap.ID, &snap.CapturedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "id", snap.ID, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Latest returns the newest snapshot, or sql.ErrNoRows when there is none.
func (s *Store) Latest(ctx context.Context) (Snapshot, error) {
	snaps, err := s.List(ctx, 1)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, sql.ErrNoRows
	}
	return snaps[0], nil
}

// StartPeriodicSave snapshots source every interval until ctx is done, then
// writes one final snapshot. The returned channel closes when it has.
func (s *Store) StartPeriodicSave(ctx context.Context, source analytics.StatsSource, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Save(ctx, source.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Save(finalCtx, source.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
	return done
}
