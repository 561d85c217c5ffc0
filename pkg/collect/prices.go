// Package collect gathers the external inputs an analysis needs: historical
// prices, news from two sources, research excerpts, and anomaly zones.
// Collectors degrade independently; a failed optional source returns empty
// results, while the price fetcher returns a structured DataFetchError the
// orchestrator can explain to the user.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// PriceFetcher is the contract the forecast pipeline depends on.
type PriceFetcher interface {
	FetchDaily(ctx context.Context, code, market string, historyDays int) ([]models.TimePoint, error)
}

// PriceClient fetches daily close prices from the market-data service.
type PriceClient struct {
	baseURL string
	client  *http.Client
}

// NewPriceClient creates a PriceClient for the configured service.
func NewPriceClient(cfg config.PriceConfig) *PriceClient {
	return &PriceClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type dailyResponse struct {
	Points []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"points"`
}

// FetchDaily returns the normalized daily close series for the given code,
// covering at most historyDays calendar days back from today. Failures come
// back as *models.DataFetchError with a kind the orchestrator can explain.
func (c *PriceClient) FetchDaily(ctx context.Context, code, market string, historyDays int) ([]models.TimePoint, error) {
	q := url.Values{}
	q.Set("code", code)
	if market != "" {
		q.Set("market", market)
	}
	q.Set("days", strconv.Itoa(historyDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/daily?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewDataFetchError(models.FetchErrNetwork, "price service unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NewDataFetchError(models.FetchErrInvalidCode, "no price data for code %s", code)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, models.NewDataFetchError(models.FetchErrPermission, "price service rejected the request with status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, models.NewDataFetchError(models.FetchErrUnknown, "price service returned status %d", resp.StatusCode)
	}

	var decoded dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, models.NewDataFetchError(models.FetchErrUnknown, "malformed price response: %v", err)
	}
	if len(decoded.Points) == 0 {
		return nil, models.NewDataFetchError(models.FetchErrInvalidCode, "empty price series for code %s", code)
	}

	points := make([]models.TimePoint, 0, len(decoded.Points))
	for _, p := range decoded.Points {
		if _, err := time.Parse(models.DateLayout, p.Date); err != nil {
			continue
		}
		points = append(points, models.TimePoint{Date: p.Date, Value: p.Close})
	}
	if len(points) == 0 {
		return nil, models.NewDataFetchError(models.FetchErrUnknown, "price series for %s had no parseable dates", code)
	}
	return models.NormalizeSeries(points), nil
}
