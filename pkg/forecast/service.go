package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// predictionSeed pins the stochastic backends so repeated runs over the
// same series agree.
const predictionSeed = 42

// ServiceClient talks to the model service hosting the heavy forecasting
// backends.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient creates a client for the configured model service.
func NewServiceClient(cfg config.ModelsConfig) *ServiceClient {
	return &ServiceClient{
		baseURL: strings.TrimRight(cfg.ServiceBaseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Forecaster returns a Forecaster backed by the named service model.
func (c *ServiceClient) Forecaster(model string) Forecaster {
	return &serviceForecaster{model: model, svc: c}
}

// Candidates returns the service-backed models eligible for selection.
func (c *ServiceClient) Candidates() []Forecaster {
	names := []string{ModelProphet, ModelXGBoost, ModelRandomForest, ModelDLinear}
	out := make([]Forecaster, len(names))
	for i, name := range names {
		out[i] = c.Forecaster(name)
	}
	return out
}

type serviceForecaster struct {
	model string
	svc   *ServiceClient
}

func (f *serviceForecaster) Name() string { return f.model }

type forecastRequest struct {
	Model       string             `json:"model"`
	Points      []models.TimePoint `json:"points"`
	FutureDates []string           `json:"future_dates"`
	Seed        int64              `json:"seed"`
	Params      *ProphetParams     `json:"params,omitempty"`
}

type forecastResponse struct {
	Points []models.TimePoint `json:"points"`
}

func (f *serviceForecaster) Predict(ctx context.Context, req Request) ([]models.TimePoint, error) {
	body, err := json.Marshal(forecastRequest{
		Model:       f.model,
		Points:      req.Series,
		FutureDates: req.FutureDates,
		Seed:        predictionSeed,
		Params:      req.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.svc.baseURL+"/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.svc.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s returned status %d", f.model, resp.StatusCode)
	}

	var decoded forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	if len(decoded.Points) != len(req.FutureDates) {
		return nil, fmt.Errorf("model %s returned %d points for %d requested dates",
			f.model, len(decoded.Points), len(req.FutureDates))
	}
	for i := range decoded.Points {
		decoded.Points[i].Predicted = true
	}
	return decoded.Points, nil
}
