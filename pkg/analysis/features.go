// Package analysis holds the interpretation layer between raw collected
// data and the conclusion: series feature extraction, news sentiment,
// model parameter recommendation, and news summarization.
package analysis

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// Trend classification thresholds on the relative fitted change over the
// series.
const (
	trendUpThreshold   = 0.05
	trendDownThreshold = -0.05
)

// Volatility classification thresholds on the coefficient of variation.
const (
	volLowThreshold  = 0.1
	volHighThreshold = 0.3
)

// ExtractFeatures computes the descriptive features of a price series. The
// series must be normalized ascending and non-empty.
func ExtractFeatures(points []models.TimePoint) (*models.Features, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("cannot extract features from an empty series")
	}

	values := models.SeriesValues(points)
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean: %w", err)
	}
	std, err := stats.StandardDeviation(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compute standard deviation: %w", err)
	}
	minVal, err := stats.Min(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compute min: %w", err)
	}
	maxVal, err := stats.Max(values)
	if err != nil {
		return nil, fmt.Errorf("failed to compute max: %w", err)
	}

	return &models.Features{
		Trend:      classifyTrend(values, mean),
		Volatility: classifyVolatility(mean, std),
		Mean:       mean,
		Std:        std,
		Min:        minVal,
		Max:        maxVal,
		Latest:     values[len(values)-1],
		Count:      len(points),
		StartDate:  points[0].Date,
		EndDate:    points[len(points)-1].Date,
	}, nil
}

// classifyTrend fits a least-squares line and classifies the fitted change
// over the whole series relative to the mean level.
func classifyTrend(values []float64, mean float64) string {
	if len(values) < 2 || mean == 0 {
		return "flat"
	}

	series := make(stats.Series, len(values))
	for i, v := range values {
		series[i] = stats.Coordinate{X: float64(i), Y: v}
	}
	fitted, err := stats.LinearRegression(series)
	if err != nil || len(fitted) < 2 {
		return "flat"
	}

	relChange := (fitted[len(fitted)-1].Y - fitted[0].Y) / math.Abs(mean)
	switch {
	case relChange > trendUpThreshold:
		return "up"
	case relChange < trendDownThreshold:
		return "down"
	default:
		return "flat"
	}
}

func classifyVolatility(mean, std float64) string {
	if mean == 0 {
		return "high"
	}
	cv := std / math.Abs(mean)
	switch {
	case cv < volLowThreshold:
		return "low"
	case cv < volHighThreshold:
		return "mid"
	default:
		return "high"
	}
}
