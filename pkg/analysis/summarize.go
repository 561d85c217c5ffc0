package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

const summarizeSystemPrompt = `You condense financial news items. For each
numbered item, produce a short headline and a one-sentence summary. Respond
with a JSON array in input order:

[{"title": "...", "content": "..."}]`

// SummarizeNews condenses the collected news in one batched model call and
// attaches the summaries to the items. On any failure the items come back
// unchanged; summaries are presentation, not data.
func SummarizeNews(ctx context.Context, client llm.Client, items []models.NewsItem) []models.NewsItem {
	if len(items) == 0 {
		return items
	}

	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, item.Title)
		if item.Snippet != "" && item.Snippet != item.Title {
			fmt.Fprintf(&sb, " - %s", item.Snippet)
		}
		sb.WriteString("\n")
	}

	raw, err := client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: summarizeSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		slog.Warn("News summarization failed, keeping raw items", "error", err)
		return items
	}

	var summaries []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &summaries); err != nil {
		slog.Warn("News summaries unparseable, keeping raw items", "error", err)
		return items
	}

	out := make([]models.NewsItem, len(items))
	copy(out, items)
	for i := range out {
		if i >= len(summaries) {
			break
		}
		out[i].SummarizedTitle = summaries[i].Title
		out[i].SummarizedContent = summaries[i].Content
	}
	return out
}

func extractJSONArray(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.IndexByte(raw, '['); start >= 0 {
		if end := strings.LastIndexByte(raw, ']'); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}
