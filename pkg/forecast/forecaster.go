// Package forecast produces price predictions and picks the production
// model through a rolling-window back-test against a seasonal-naive
// baseline.
package forecast

import (
	"context"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// BaselineModel is the reference model every candidate must beat.
const BaselineModel = "seasonal_naive"

// Candidate model names served by the model service.
const (
	ModelProphet      = "prophet"
	ModelXGBoost      = "xgboost"
	ModelRandomForest = "randomforest"
	ModelDLinear      = "dlinear"
)

// ProphetParams tunes the prophet backend. Zero values mean the service
// defaults apply.
type ProphetParams struct {
	ChangepointPriorScale float64 `json:"changepoint_prior_scale,omitempty"`
	SeasonalityPriorScale float64 `json:"seasonality_prior_scale,omitempty"`
	SeasonalityMode       string  `json:"seasonality_mode,omitempty"`
}

// Request is one prediction call: a training series and the future dates
// to predict, in order. Params is honored by backends that accept tuning.
type Request struct {
	Series      []models.TimePoint
	FutureDates []string
	Params      *ProphetParams
}

// Forecaster predicts values for the requested future dates. Returned
// points carry Predicted=true and align one-to-one with FutureDates.
type Forecaster interface {
	Name() string
	Predict(ctx context.Context, req Request) ([]models.TimePoint, error)
}
