package aggregator

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/postgres"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("RF_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RF_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_SaveAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(&postgres.Client{DB: db})
	require.NoError(t, store.EnsureSchema(ctx))
	_, err := db.ExecContext(ctx, `TRUNCATE filter_analytics_snapshots`)
	require.NoError(t, err)

	_, err = store.Latest(ctx)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, store.Save(ctx, analytics.Stats{TotalEvents: 1}))
	require.NoError(t, store.Save(ctx, analytics.Stats{TotalEvents: 7}))

	snaps, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(7), snaps[0].Stats.TotalEvents)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snaps[0].ID, latest.ID)
}

type staticStats analytics.Stats

func (s staticStats) Stats() analytics.Stats { return analytics.Stats(s) }

func TestStore_PeriodicSaveWritesFinalSnapshot(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(&postgres.Client{DB: db})
	require.NoError(t, store.EnsureSchema(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := store.StartPeriodicSave(ctx, staticStats{TotalEvents: 42}, time.Hour)
	cancel()
	<-done

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), latest.Stats.TotalEvents)
}
