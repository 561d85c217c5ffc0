package analysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

var sampleFeatures = &models.Features{
	Trend: "up", Volatility: "mid",
	Mean: 110, Std: 15, Latest: 130, Count: 180,
	StartDate: "2026-01-05", EndDate: "2026-08-21",
}

func TestRecommendParsesFencedJSON(t *testing.T) {
	client := llm.NewScriptedClient("```json\n" +
		`{"changepoint_prior_scale":0.2,"seasonality_prior_scale":5.0,"seasonality_mode":"multiplicative"}` +
		"\n```")

	params := RecommendProphetParams(context.Background(), client, sampleFeatures, nil)
	assert.Equal(t, 0.2, params.ChangepointPriorScale)
	assert.Equal(t, 5.0, params.SeasonalityPriorScale)
	assert.Equal(t, "multiplicative", params.SeasonalityMode)
}

func TestRecommendFallsBackOnModelError(t *testing.T) {
	client := &llm.ScriptedClient{Err: fmt.Errorf("provider down")}

	params := RecommendProphetParams(context.Background(), client, sampleFeatures, nil)
	assert.Equal(t, conservativeParams(), params)
}

func TestRecommendFallsBackOnGarbage(t *testing.T) {
	client := llm.NewScriptedClient("I think additive is best, no JSON today.")

	params := RecommendProphetParams(context.Background(), client, sampleFeatures, nil)
	assert.Equal(t, conservativeParams(), params)
}

func TestRecommendFoldsSentimentIntoPrompt(t *testing.T) {
	client := llm.NewScriptedClient(`{"changepoint_prior_scale":0.3,"seasonality_prior_scale":2.0,"seasonality_mode":"additive"}`)
	sentiment := &models.SentimentResult{
		Score:     -0.6,
		Narrative: "Coverage is dominated by the regulatory probe.",
	}

	params := RecommendProphetParams(context.Background(), client, sampleFeatures, sentiment)
	assert.Equal(t, 0.3, params.ChangepointPriorScale)

	require.Len(t, client.Calls, 1)
	userMsg := client.Calls[0][len(client.Calls[0])-1].Content
	assert.Contains(t, userMsg, "News sentiment -0.60")
	assert.Contains(t, userMsg, "regulatory probe")
}

func TestRecommendOmitsSentimentWhenUnscored(t *testing.T) {
	client := llm.NewScriptedClient(`{"changepoint_prior_scale":0.1}`)

	RecommendProphetParams(context.Background(), client, sampleFeatures, nil)
	require.Len(t, client.Calls, 1)
	userMsg := client.Calls[0][len(client.Calls[0])-1].Content
	assert.NotContains(t, userMsg, "News sentiment")
}

func TestRecommendNormalizesBadMode(t *testing.T) {
	client := llm.NewScriptedClient(`{"changepoint_prior_scale":0.1,"seasonality_mode":"hybrid"}`)

	params := RecommendProphetParams(context.Background(), client, sampleFeatures, nil)
	assert.Equal(t, "additive", params.SeasonalityMode)
	assert.Equal(t, 0.1, params.ChangepointPriorScale)
}

func TestSummarizeNewsAttachesSummaries(t *testing.T) {
	client := llm.NewScriptedClient(`[
		{"title":"Record profit","content":"Profit hit an all-time high."},
		{"title":"New plant","content":"Capacity grows next year."}
	]`)

	items := newsItems("Kweichow Moutai posts record quarterly profit", "Moutai distillery expands capacity")
	out := SummarizeNews(context.Background(), client, items)

	assert.Equal(t, "Record profit", out[0].SummarizedTitle)
	assert.Equal(t, "Capacity grows next year.", out[1].SummarizedContent)
	// The input slice is untouched.
	assert.Empty(t, items[0].SummarizedTitle)
}

func TestSummarizeNewsKeepsItemsOnFailure(t *testing.T) {
	client := &llm.ScriptedClient{Err: fmt.Errorf("provider down")}

	items := newsItems("headline")
	out := SummarizeNews(context.Background(), client, items)
	assert.Equal(t, items, out)
}
