package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func TestRun_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{"a": Ping(up, true), "b": Ping(up, false)}, StatusUp},
		{"degraded", map[string]Check{"a": Ping(up, true), "cache": Ping(fail, false)}, StatusDegraded},
		{"down beats degraded", map[string]Check{"db": Ping(fail, true), "cache": Ping(fail, false)}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(0)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestPing_MessageOnFailure(t *testing.T) {
	got := Ping(fail, true)(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.Equal(t, "connection refused", got.Message)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(0)
	c.Register("cache", Ping(fail, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Register("loader", Ping(fail, true))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusDegraded, report.Components["cache"].Status)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker(0).LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
