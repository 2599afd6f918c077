package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/resilience"
)

func TestNew_SelectsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(propertiesBody))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Loader = testLoaderConfig(srv.URL)
	m := metrics.New()

	l, err := New(cfg, Deps{HTTPClient: srv.Client(), Metrics: m})
	require.NoError(t, err)
	_, isInvalidator := l.(Invalidator)
	assert.False(t, isInvalidator, "no cache configured")

	listings, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoadedListings))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoaderDuration))
}

func TestNew_WrapsCache(t *testing.T) {
	cfg := config.Default()
	l, err := New(cfg, Deps{Cache: newFakeStore()})
	require.NoError(t, err)
	cached, ok := l.(*CachedLoader)
	require.True(t, ok)
	if budget := loadBudget(cfg.Loader); budget > 0 {
		assert.Equal(t, budget, cached.loadTimeout)
	} else {
		assert.Equal(t, defaultSharedLoadTimeout, cached.loadTimeout)
	}
}

func TestLoadBudget(t *testing.T) {
	cfg := config.LoaderConfig{Timeout: 10 * time.Second, MaxAttempts: 3, MaxBackoff: 2 * time.Second}
	assert.Equal(t, 34*time.Second, loadBudget(cfg))
	assert.Zero(t, loadBudget(config.LoaderConfig{MaxAttempts: 3}))
}

func TestCircuitState_LooksThroughWrappers(t *testing.T) {
	cfg := config.Default()
	l, err := New(cfg, Deps{Cache: newFakeStore()})
	require.NoError(t, err)

	state, ok := CircuitState(l)
	assert.True(t, ok)
	assert.Equal(t, resilience.StateClosed, state)

	_, ok = CircuitState(NewPostgresLoader(nil))
	assert.False(t, ok)
}

func TestNew_PostgresNeedsClient(t *testing.T) {
	cfg := config.Default()
	cfg.Loader.Source = SourcePostgres
	_, err := New(cfg, Deps{})
	assert.Error(t, err)

	cfg.Loader.Source = "ftp"
	_, err = New(cfg, Deps{})
	assert.Error(t, err)
}

func TestInstrumented_RecordsErrors(t *testing.T) {
	m := metrics.New()
	l := &instrumented{source: "api", next: &countingLoader{err: errors.New("boom")}, m: m, logger: testLogger()}

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoaderDuration, "listing_loader_duration_seconds"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LoadedListings))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
