package collect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

func TestFetchDailyNormalizesSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/daily", r.URL.Path)
		assert.Equal(t, "600519", r.URL.Query().Get("code"))
		assert.Equal(t, "SH", r.URL.Query().Get("market"))
		assert.Equal(t, "365", r.URL.Query().Get("days"))
		// Out of order, one duplicate date, one garbage date.
		_, _ = w.Write([]byte(`{"points":[
			{"date":"2026-08-21","close":101.5},
			{"date":"2026-08-20","close":100.0},
			{"date":"2026-08-21","close":102.0},
			{"date":"not-a-date","close":1.0}
		]}`))
	}))
	defer srv.Close()

	c := NewPriceClient(config.PriceConfig{BaseURL: srv.URL})
	points, err := c.FetchDaily(context.Background(), "600519", "SH", 365)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "2026-08-20", points[0].Date)
	assert.Equal(t, "2026-08-21", points[1].Date)
	// Duplicate dates keep the last occurrence.
	assert.Equal(t, 102.0, points[1].Value)
}

func TestFetchDailyErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind string
	}{
		{"not found is invalid code", http.StatusNotFound, models.FetchErrInvalidCode},
		{"unauthorized is permission", http.StatusUnauthorized, models.FetchErrPermission},
		{"forbidden is permission", http.StatusForbidden, models.FetchErrPermission},
		{"server error is unknown", http.StatusInternalServerError, models.FetchErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewPriceClient(config.PriceConfig{BaseURL: srv.URL})
			_, err := c.FetchDaily(context.Background(), "999999", "", 30)

			var fe *models.DataFetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantKind, fe.Kind)
		})
	}
}

func TestFetchDailyTransportFailureIsNetwork(t *testing.T) {
	c := NewPriceClient(config.PriceConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.FetchDaily(context.Background(), "600519", "SH", 30)

	var fe *models.DataFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.FetchErrNetwork, fe.Kind)
}

func TestFetchDailyEmptySeriesIsInvalidCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"points":[]}`))
	}))
	defer srv.Close()

	c := NewPriceClient(config.PriceConfig{BaseURL: srv.URL})
	_, err := c.FetchDaily(context.Background(), "000000", "", 30)

	var fe *models.DataFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.FetchErrInvalidCode, fe.Kind)
}
