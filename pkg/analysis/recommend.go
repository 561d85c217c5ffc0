package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/forecast"
	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

const recommendSystemPrompt = `You tune a Prophet forecasting model for a
price series with the described characteristics. Respond with JSON only:

{"changepoint_prior_scale": 0.05, "seasonality_prior_scale": 10.0, "seasonality_mode": "additive"}

changepoint_prior_scale in [0.001, 0.5]; larger fits a bendier trend.
seasonality_prior_scale in [0.01, 10]; larger fits stronger seasonality.
seasonality_mode is "additive" or "multiplicative".
News sentiment, when given, signals a possible regime shift that the
recent prices do not show yet; weigh it against the observed trend.`

// conservativeParams is the fallback when the recommender fails: the
// Prophet defaults, which fit a rigid trend.
func conservativeParams() *forecast.ProphetParams {
	return &forecast.ProphetParams{
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10.0,
		SeasonalityMode:       "additive",
	}
}

// RecommendProphetParams asks the model to tune Prophet for the observed
// series features and the news sentiment around the instrument. A nil
// sentiment means no news was scored. Any failure degrades to the
// conservative defaults; the recommendation is advisory, never
// load-bearing.
func RecommendProphetParams(ctx context.Context, client llm.Client, features *models.Features, sentiment *models.SentimentResult) *forecast.ProphetParams {
	prompt := fmt.Sprintf(
		"Series of %d daily closes from %s to %s: trend %s, volatility %s, mean %.2f, std %.2f, latest %.2f.",
		features.Count, features.StartDate, features.EndDate,
		features.Trend, features.Volatility, features.Mean, features.Std, features.Latest,
	)
	if sentiment != nil {
		prompt += fmt.Sprintf(
			" News sentiment %.2f on a -1 (bearish) to +1 (bullish) scale: %s",
			sentiment.Score, sentiment.Narrative,
		)
	}

	raw, err := client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: recommendSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		slog.Warn("Parameter recommendation failed, using defaults", "error", err)
		return conservativeParams()
	}

	var params forecast.ProphetParams
	if err := json.Unmarshal([]byte(extractJSON(raw)), &params); err != nil {
		slog.Warn("Parameter recommendation unparseable, using defaults", "error", err)
		return conservativeParams()
	}
	if params.SeasonalityMode != "additive" && params.SeasonalityMode != "multiplicative" {
		params.SeasonalityMode = "additive"
	}
	return &params
}

// extractJSON strips an optional markdown fence around a JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}
