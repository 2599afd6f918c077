package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/resilience"
)

const (
	propertiesPath = "/v1/properties"
	maxBodyBytes   = 32 << 20
)

// APILoader fetches the collection from the platform's properties endpoint.
// Each Load is one circuit-breaker call containing up to MaxAttempts
// requests.
type APILoader struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewAPILoader builds an APILoader. A nil client means http.DefaultClient;
// m may be nil.
func NewAPILoader(cfg config.LoaderConfig, client *http.Client, m *metrics.Metrics) *APILoader {
	if client == nil {
		client = http.DefaultClient
	}
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &APILoader{
		url:     strings.TrimRight(cfg.BaseURL, "/") + propertiesPath,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		client:  client,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialDelay:   cfg.InitialBackoff,
			MaxDelay:       cfg.MaxBackoff,
			JitterFraction: 0.1,
		},
		breaker: resilience.NewCircuitBreaker("listing-api", cbCfg),
		logger:  slog.Default().With("component", "api-loader"),
	}
}

func (l *APILoader) Load(ctx context.Context) ([]listing.Listing, error) {
	var listings []listing.Listing
	err := l.breaker.Execute(func() error {
		return resilience.Retry(ctx, "fetch-listings", l.retry, func() error {
			got, err := l.fetch(ctx)
			if err != nil {
				return err
			}
			listings = got
			return nil
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "listing source temporarily unavailable")
	}
	if err != nil {
		return nil, fmt.Errorf("loading listings from %s: %w", l.url, err)
	}
	return listings, nil
}

// BreakerState reports the loader's circuit state for health checks.
func (l *APILoader) BreakerState() resilience.State {
	return l.breaker.State()
}

func (l *APILoader) fetch(ctx context.Context) ([]listing.Listing, error) {
	// fn can outlive WithTimeout.
	result := make(chan []listing.Listing, 1)
	err := resilience.WithTimeout(ctx, l.timeout, "GET "+propertiesPath, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if l.token != "" {
			req.Header.Set("Authorization", "Bearer "+l.token)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("requesting listings: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			l.logger.Warn("listing API rejected request", "status", resp.StatusCode, "url", l.url)
			upstream := apperrors.Newf(apperrors.ErrUpstream, http.StatusBadGateway,
				"listing API returned %d", resp.StatusCode)
			if retryableStatus(resp.StatusCode) {
				return upstream
			}
			return resilience.Permanent(upstream)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("reading listings body: %w", err)
		}
		if !gjson.ValidBytes(body) {
			return resilience.Permanent(apperrors.New(apperrors.ErrUpstream, http.StatusBadGateway,
				"listing API returned invalid JSON"))
		}
		result <- listing.DecodePayload(body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return <-result, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
