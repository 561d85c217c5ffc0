package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
	"github.com/tickertalk/tickertalk/pkg/store"
)

// ZoneProvider is the contract the orchestrator depends on.
type ZoneProvider interface {
	Zones(ctx context.Context, code string, series []models.TimePoint) ([]models.AnomalyZone, error)
}

// zoneCache is the slice of the store the provider needs.
type zoneCache interface {
	GetZones(ctx context.Context, code string) (*store.ZoneCacheEntry, error)
	SaveZones(ctx context.Context, code string, entry *store.ZoneCacheEntry) error
}

// ZoneClient computes anomaly zones via the model service, with a
// per-entity cache. A cache entry records the series window it was computed
// over; a hit for a different window is discarded, not returned.
type ZoneClient struct {
	baseURL string
	cache   zoneCache
	client  *http.Client
}

// NewZoneClient creates a ZoneClient from config and the shared store.
func NewZoneClient(cfg config.ModelsConfig, cache zoneCache) *ZoneClient {
	return &ZoneClient{
		baseURL: strings.TrimRight(cfg.ServiceBaseURL, "/"),
		cache:   cache,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type zonesRequest struct {
	Points []models.TimePoint `json:"points"`
}

type zonesResponse struct {
	Zones []models.AnomalyZone `json:"zones"`
}

// Zones returns anomaly zones for the series, serving from cache when the
// cached window matches. Zone detection is decorative for the analysis, so
// a failed computation returns the error for the caller to log and skip.
func (z *ZoneClient) Zones(ctx context.Context, code string, series []models.TimePoint) ([]models.AnomalyZone, error) {
	if len(series) == 0 {
		return nil, nil
	}
	start, end := series[0].Date, series[len(series)-1].Date

	if entry, err := z.cache.GetZones(ctx, code); err == nil {
		if entry.StartDate == start && entry.EndDate == end {
			return entry.Zones, nil
		}
		slog.Debug("Cached zones cover a different window, recomputing",
			"code", code, "cached_start", entry.StartDate, "cached_end", entry.EndDate)
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Warn("Zone cache read failed", "code", code, "error", err)
	}

	zones, err := z.compute(ctx, series)
	if err != nil {
		return nil, err
	}

	entry := &store.ZoneCacheEntry{Zones: zones, StartDate: start, EndDate: end, CachedAt: time.Now()}
	if err := z.cache.SaveZones(ctx, code, entry); err != nil {
		slog.Warn("Zone cache write failed", "code", code, "error", err)
	}
	return zones, nil
}

func (z *ZoneClient) compute(ctx context.Context, series []models.TimePoint) ([]models.AnomalyZone, error) {
	body, err := json.Marshal(zonesRequest{Points: series})
	if err != nil {
		return nil, fmt.Errorf("failed to build zones request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+"/zones", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build zones request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zone computation returned status %d", resp.StatusCode)
	}

	var decoded zonesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode zones response: %w", err)
	}
	return decoded.Zones, nil
}
