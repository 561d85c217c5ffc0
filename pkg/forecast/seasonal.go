package forecast

import (
	"context"
	"fmt"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// seasonLength is one trading week.
const seasonLength = 5

// SeasonalNaive predicts each future day as the value observed one trading
// week earlier: the last five observations repeat cyclically. It is the
// in-process baseline every heavier model has to beat.
type SeasonalNaive struct{}

// Name implements Forecaster.
func (SeasonalNaive) Name() string { return BaselineModel }

// Predict implements Forecaster.
func (SeasonalNaive) Predict(_ context.Context, req Request) ([]models.TimePoint, error) {
	n := len(req.Series)
	if n == 0 {
		return nil, fmt.Errorf("seasonal naive needs a non-empty series")
	}

	season := req.Series
	if n > seasonLength {
		season = req.Series[n-seasonLength:]
	}

	out := make([]models.TimePoint, len(req.FutureDates))
	for i, date := range req.FutureDates {
		out[i] = models.TimePoint{
			Date:      date,
			Value:     season[i%len(season)].Value,
			Predicted: true,
		}
	}
	return out, nil
}
