package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

func TestServiceForecasterRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)

		var req forecastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "prophet", req.Model)
		assert.Equal(t, int64(predictionSeed), req.Seed)
		require.NotNil(t, req.Params)
		assert.Equal(t, "multiplicative", req.Params.SeasonalityMode)

		points := make([]models.TimePoint, len(req.FutureDates))
		for i, d := range req.FutureDates {
			points[i] = models.TimePoint{Date: d, Value: 100}
		}
		_ = json.NewEncoder(w).Encode(forecastResponse{Points: points})
	}))
	defer srv.Close()

	f := NewServiceClient(config.ModelsConfig{ServiceBaseURL: srv.URL}).Forecaster(ModelProphet)
	preds, err := f.Predict(context.Background(), Request{
		Series:      risingSeries(10),
		FutureDates: []string{"2026-08-25", "2026-08-26"},
		Params:      &ProphetParams{SeasonalityMode: "multiplicative"},
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.True(t, preds[0].Predicted)
	assert.Equal(t, "2026-08-25", preds[0].Date)
}

func TestServiceForecasterPointCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(forecastResponse{Points: []models.TimePoint{{Date: "2026-08-25", Value: 1}}})
	}))
	defer srv.Close()

	f := NewServiceClient(config.ModelsConfig{ServiceBaseURL: srv.URL}).Forecaster(ModelXGBoost)
	_, err := f.Predict(context.Background(), Request{
		Series:      risingSeries(10),
		FutureDates: []string{"2026-08-25", "2026-08-26"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 points for 2 requested dates")
}

func TestServiceClientCandidates(t *testing.T) {
	c := NewServiceClient(config.ModelsConfig{ServiceBaseURL: "http://model-service"})
	names := make([]string, 0, 4)
	for _, f := range c.Candidates() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{ModelProphet, ModelXGBoost, ModelRandomForest, ModelDLinear}, names)
}
