package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
	"github.com/tickertalk/tickertalk/pkg/store"
)

// memZoneCache is an in-memory stand-in for the Redis zone cache.
type memZoneCache struct {
	entries map[string]*store.ZoneCacheEntry
}

func newMemZoneCache() *memZoneCache {
	return &memZoneCache{entries: map[string]*store.ZoneCacheEntry{}}
}

func (m *memZoneCache) GetZones(_ context.Context, code string) (*store.ZoneCacheEntry, error) {
	if e, ok := m.entries[code]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (m *memZoneCache) SaveZones(_ context.Context, code string, entry *store.ZoneCacheEntry) error {
	m.entries[code] = entry
	return nil
}

func zoneSeries(dates ...string) []models.TimePoint {
	points := make([]models.TimePoint, len(dates))
	for i, d := range dates {
		points[i] = models.TimePoint{Date: d, Value: float64(100 + i)}
	}
	return points
}

func TestZonesComputesAndCaches(t *testing.T) {
	var computeCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones", r.URL.Path)
		computeCalls.Add(1)
		_, _ = w.Write([]byte(`{"zones":[
			{"start_date":"2026-08-19","end_date":"2026-08-20","direction":"spike","magnitude":0.12}
		]}`))
	}))
	defer srv.Close()

	cache := newMemZoneCache()
	z := NewZoneClient(config.ModelsConfig{ServiceBaseURL: srv.URL}, cache)
	series := zoneSeries("2026-08-18", "2026-08-19", "2026-08-20")

	for i := 0; i < 2; i++ {
		zones, err := z.Zones(context.Background(), "600519", series)
		require.NoError(t, err)
		require.Len(t, zones, 1)
		assert.Equal(t, "spike", zones[0].Direction)
	}
	assert.Equal(t, int32(1), computeCalls.Load())
}

func TestZonesRecomputesOnWindowMismatch(t *testing.T) {
	var computeCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		computeCalls.Add(1)
		_, _ = w.Write([]byte(`{"zones":[]}`))
	}))
	defer srv.Close()

	cache := newMemZoneCache()
	cache.entries["600519"] = &store.ZoneCacheEntry{
		Zones:     []models.AnomalyZone{{StartDate: "2025-01-01", EndDate: "2025-01-05"}},
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	}

	z := NewZoneClient(config.ModelsConfig{ServiceBaseURL: srv.URL}, cache)
	zones, err := z.Zones(context.Background(), "600519", zoneSeries("2026-08-18", "2026-08-20"))
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.Equal(t, int32(1), computeCalls.Load())

	// Cache was overwritten with the new window.
	assert.Equal(t, "2026-08-18", cache.entries["600519"].StartDate)
	assert.Equal(t, "2026-08-20", cache.entries["600519"].EndDate)
}

func TestZonesEmptySeries(t *testing.T) {
	z := NewZoneClient(config.ModelsConfig{ServiceBaseURL: "http://127.0.0.1:1"}, newMemZoneCache())
	zones, err := z.Zones(context.Background(), "600519", nil)
	require.NoError(t, err)
	assert.Nil(t, zones)
}

func TestZonesComputeFailure(t *testing.T) {
	z := NewZoneClient(config.ModelsConfig{ServiceBaseURL: "http://127.0.0.1:1"}, newMemZoneCache())
	_, err := z.Zones(context.Background(), "600519", zoneSeries("2026-08-18"))
	require.Error(t, err)
}
