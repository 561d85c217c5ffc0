package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

func newsItems(titles ...string) []models.NewsItem {
	items := make([]models.NewsItem, len(titles))
	for i, title := range titles {
		items[i] = models.NewsItem{Title: title, SourceType: models.NewsSourceWeb}
	}
	return items
}

func TestScoreSentimentStreamsNarrativeOnly(t *testing.T) {
	client := llm.NewScriptedClient("SCORE:0.6\nThe coverage is broadly positive this week.")

	var streamed strings.Builder
	res, err := ScoreSentiment(context.Background(), client, "Kweichow Moutai",
		newsItems("Record profit", "Capacity expansion"),
		func(d string) { streamed.WriteString(d) })
	require.NoError(t, err)

	assert.Equal(t, 0.6, res.Score)
	assert.Equal(t, "The coverage is broadly positive this week.", res.Narrative)
	// The score line never reached the callback.
	assert.NotContains(t, streamed.String(), "SCORE")
	assert.Equal(t, res.Narrative, streamed.String())
}

func TestScoreSentimentZeroNewsIsNeutralWithoutModelCall(t *testing.T) {
	client := llm.NewScriptedClient()

	res, err := ScoreSentiment(context.Background(), client, "Kweichow Moutai", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Score)
	assert.Contains(t, res.Narrative, "neutral")
	assert.Empty(t, client.Calls)
}

func TestScoreSentimentClampsRange(t *testing.T) {
	client := llm.NewScriptedClient("SCORE:3.5\nEuphoric coverage.")

	res, err := ScoreSentiment(context.Background(), client, "X", newsItems("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestScoreSentimentBadScoreLineIsNeutral(t *testing.T) {
	client := llm.NewScriptedClient("The news looks mixed overall.\nHard to say.")

	res, err := ScoreSentiment(context.Background(), client, "X", newsItems("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.NotEmpty(t, res.Narrative)
}

func TestScoreSentimentTruncatesItemList(t *testing.T) {
	client := llm.NewScriptedClient("SCORE:0.1\nok")

	titles := make([]string, 30)
	for i := range titles {
		titles[i] = "headline"
	}
	_, err := ScoreSentiment(context.Background(), client, "X", newsItems(titles...), nil)
	require.NoError(t, err)

	require.Len(t, client.Calls, 1)
	userMsg := client.Calls[0][1].Content
	assert.Contains(t, userMsg, "20. headline")
	assert.NotContains(t, userMsg, "21. headline")
}
