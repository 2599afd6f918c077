package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/analytics"
)

type fakeLister struct {
	snaps     []Snapshot
	err       error
	lastLimit int
}

func (f *fakeLister) List(_ context.Context, limit int) ([]Snapshot, error) {
	f.lastLimit = limit
	return f.snaps, f.err
}

func TestHandler_Snapshots(t *testing.T) {
	lister := &fakeLister{snaps: []Snapshot{
		{ID: 2, CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Stats: analytics.Stats{TotalEvents: 9}},
	}}
	h := NewHandler(lister)

	rec := httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultListLimit, lister.lastLimit)

	var body struct {
		Snapshots []Snapshot `json:"snapshots"`
		Count     int        `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, int64(9), body.Snapshots[0].Stats.TotalEvents)
}

func TestHandler_SnapshotsLimit(t *testing.T) {
	lister := &fakeLister{}
	h := NewHandler(lister)

	rec := httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=9999", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxListLimit, lister.lastLimit)

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_SnapshotsStoreError(t *testing.T) {
	h := NewHandler(&fakeLister{err: errors.New("connection reset")})

	rec := httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}
