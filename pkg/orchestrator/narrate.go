package orchestrator

import (
	"fmt"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/models"
)

const reportSystemPrompt = `You are a financial analyst writing the final
report of an automated analysis. Using the provided data, write a clear
markdown report for the user: what the history shows, what the forecast
says, how the news sentiment reads, and sensible caveats. Do not invent
numbers.`

const chatSystemPrompt = `You are a financial analytics assistant. Answer
the user's question using the conversation and the context block below.
Cite context entries inline using their bracketed labels. If the context
is empty, answer from general knowledge and say so.`

// reportPrompt assembles the user message for the final forecast report.
func reportPrompt(msg *models.Message, features *models.Features, horizon int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User question: %s\n\n", msg.Query)
	if msg.Entity != nil {
		fmt.Fprintf(&sb, "Instrument: %s (%s)\n", msg.Entity.Name, msg.Entity.Code)
	}
	if features != nil {
		fmt.Fprintf(&sb, "History: %d daily closes from %s to %s, trend %s, volatility %s, latest %.2f.\n",
			features.Count, features.StartDate, features.EndDate, features.Trend, features.Volatility, features.Latest)
	}
	if sel := msg.Selection; sel != nil {
		fmt.Fprintf(&sb, "Forecast model: %s (%s). Horizon: %d days.\n", sel.SelectedModel, sel.Reason, horizon)
	}
	if n := len(msg.FullSeries); n > 0 && msg.PredictionStartDay != "" {
		last := msg.FullSeries[n-1]
		fmt.Fprintf(&sb, "Predicted path runs from %s to %s, ending at %.2f.\n",
			msg.PredictionStartDay, last.Date, last.Value)
	}
	if msg.Sentiment != nil {
		fmt.Fprintf(&sb, "News sentiment score %.2f: %s\n", msg.Sentiment.Score, msg.Sentiment.Narrative)
	}
	return sb.String()
}

// contextBlock renders gathered material with citation labels: research
// excerpts as [filename page N]: snippet, news as [title](url): snippet.
func contextBlock(research []models.ResearchExcerpt, news []models.NewsItem) string {
	var sb strings.Builder
	for _, r := range research {
		fmt.Fprintf(&sb, "[%s page %d]: %s\n", r.Filename, r.Page, r.Content)
	}
	for _, n := range news {
		snippet := n.Snippet
		if n.SummarizedContent != "" {
			snippet = n.SummarizedContent
		}
		fmt.Fprintf(&sb, "[%s](%s): %s\n", n.Title, n.URL, snippet)
	}
	return sb.String()
}

// chatPrompt assembles the user message for the chat responder.
func chatPrompt(query, context string) string {
	if context == "" {
		return query
	}
	return fmt.Sprintf("%s\n\nContext:\n%s", query, context)
}
