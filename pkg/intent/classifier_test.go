package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

const forecastReply = "Let me look at this request. The user wants a price forecast.\n" +
	"```json\n" +
	`{"is_in_scope":true,"is_forecast":true,"use_web_search":true,"use_domain_news":true,` +
	`"stock_mention":"Kweichow Moutai","stock_full_name":"Kweichow Moutai Co., Ltd.",` +
	`"web_keywords":["Kweichow Moutai"],"news_keywords":["Kweichow Moutai"],` +
	`"forecast_model":"xgboost","history_days":365,"horizon_days":30,"rationale":"price prediction"}` +
	"\n```\n"

func TestClassifyParsesForecastIntent(t *testing.T) {
	client := llm.NewScriptedClient(forecastReply)
	c := NewClassifier(client)

	var chunks []string
	res, err := c.Classify(context.Background(), "predict Kweichow Moutai next month, use XGBoost", nil, func(d string) {
		chunks = append(chunks, d)
	})
	require.NoError(t, err)

	assert.True(t, res.Intent.InScope())
	assert.True(t, res.Intent.IsForecast)
	assert.Equal(t, "Kweichow Moutai", res.Intent.StockMention)
	assert.Equal(t, "xgboost", res.Intent.ForecastModel)
	assert.Equal(t, 30, res.Intent.HorizonDays)

	// Narration was forwarded in order, and no JSON leaked into it.
	narration := strings.Join(chunks, "")
	assert.Equal(t, "Let me look at this request. The user wants a price forecast.\n", narration)
	assert.NotContains(t, narration, "{")
	assert.Equal(t, narration, res.Thinking)
}

func TestClassifyOutOfScope(t *testing.T) {
	reply := "Translation is not something I help with.\n" +
		"```json\n" +
		`{"is_in_scope":false,"refusal":"I focus on financial analysis, so I can't translate text for you."}` +
		"\n```"
	c := NewClassifier(llm.NewScriptedClient(reply))

	res, err := c.Classify(context.Background(), "Translate this paragraph to English.", nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Intent.InScope())
	assert.Contains(t, res.Intent.Refusal, "financial analysis")
}

func TestClassifyFallsBackOnBadJSON(t *testing.T) {
	reply := "Thinking out loud...\n```json\n{not valid json\n```"
	c := NewClassifier(llm.NewScriptedClient(reply))

	res, err := c.Classify(context.Background(), "how are markets?", nil, nil)
	require.NoError(t, err)

	// Conservative default: in scope, non-forecast, no tools.
	assert.True(t, res.Intent.InScope())
	assert.False(t, res.Intent.IsForecast)
	assert.False(t, res.Intent.UseWebSearch)
	// The raw output is preserved as the transcript for debugging.
	assert.Equal(t, reply, res.Thinking)
}

func TestClassifyNoFenceAtAll(t *testing.T) {
	c := NewClassifier(llm.NewScriptedClient("I will just ramble without any JSON."))

	var narration strings.Builder
	res, err := c.Classify(context.Background(), "hello", nil, func(d string) { narration.WriteString(d) })
	require.NoError(t, err)
	assert.True(t, res.Intent.InScope())
	assert.Equal(t, "I will just ramble without any JSON.", narration.String())
}

func TestClassifyIncludesRecentHistory(t *testing.T) {
	client := llm.NewScriptedClient(forecastReply)
	c := NewClassifier(client)

	history := make([]models.ConversationTurn, 0, 14)
	for i := 0; i < 14; i++ {
		history = append(history, models.ConversationTurn{Role: "user", Content: "turn"})
	}
	_, err := c.Classify(context.Background(), "and now?", history, nil)
	require.NoError(t, err)

	require.Len(t, client.Calls, 1)
	// system + 10 most recent turns + query
	assert.Len(t, client.Calls[0], 12)
}

func TestFenceSplitterHandlesMarkerSplitAcrossDeltas(t *testing.T) {
	var narration strings.Builder
	s := newFenceSplitter(func(d string) { narration.WriteString(d) })

	for _, delta := range []string{"prose here `", "`", "`json\n{\"a\":1}", "\n``", "`"} {
		s.feed(delta)
	}
	n, j := s.finish()
	assert.Equal(t, "prose here ", n)
	assert.Equal(t, n, narration.String())
	assert.JSONEq(t, `{"a":1}`, j)
}

func TestFenceSplitterBacktickTailWithoutFence(t *testing.T) {
	var narration strings.Builder
	s := newFenceSplitter(func(d string) { narration.WriteString(d) })
	s.feed("uses `code` style")
	n, j := s.finish()
	assert.Equal(t, "uses `code` style", n)
	assert.Empty(t, j)
}
