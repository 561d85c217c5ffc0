package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// maxSentimentItems bounds how many news items the scorer reads.
const maxSentimentItems = 20

const sentimentSystemPrompt = `You assess the market sentiment of recent news
about one company. Respond with the score line first, then the narrative:

SCORE:<number between -1.0 and 1.0>
<a few sentences explaining the sentiment for the user>

-1.0 is maximally negative, 0 neutral, 1.0 maximally positive.`

// ScoreSentiment runs the streaming sentiment scorer over the collected
// news. The SCORE line is held back from the callback; only the narrative
// streams out. Zero news items short-circuit to a neutral result without a
// model call.
func ScoreSentiment(ctx context.Context, client llm.Client, entityName string, news []models.NewsItem, onDelta func(string)) (*models.SentimentResult, error) {
	if len(news) == 0 {
		return &models.SentimentResult{
			Score:     0,
			Narrative: fmt.Sprintf("No recent news was found for %s, so sentiment is neutral.", entityName),
		}, nil
	}
	if len(news) > maxSentimentItems {
		news = news[:maxSentimentItems]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent news about %s:\n", entityName)
	for i, item := range news {
		fmt.Fprintf(&sb, "%d. %s", i+1, item.Title)
		if item.Snippet != "" && item.Snippet != item.Title {
			fmt.Fprintf(&sb, " - %s", item.Snippet)
		}
		sb.WriteString("\n")
	}

	splitter := newScoreSplitter(onDelta)
	raw, err := client.Stream(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: sentimentSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}, splitter.feed)
	if err != nil {
		return nil, fmt.Errorf("sentiment scoring failed: %w", err)
	}

	scoreLine, narrative := splitter.finish()
	score, perr := parseScoreLine(scoreLine)
	if perr != nil {
		slog.Warn("Sentiment score line unparseable, treating as neutral", "line", scoreLine, "error", perr)
		return &models.SentimentResult{Score: 0, Narrative: strings.TrimSpace(raw)}, nil
	}
	return &models.SentimentResult{Score: score, Narrative: strings.TrimSpace(narrative)}, nil
}

func parseScoreLine(line string) (float64, error) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "SCORE:")
	if !ok {
		return 0, fmt.Errorf("missing SCORE prefix in %q", line)
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable score in %q: %w", line, err)
	}
	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// scoreSplitter withholds the first line of a stream and forwards the rest.
type scoreSplitter struct {
	onNarrative func(string)

	firstLine strings.Builder
	narrative strings.Builder
	pastFirst bool
}

func newScoreSplitter(onNarrative func(string)) *scoreSplitter {
	return &scoreSplitter{onNarrative: onNarrative}
}

func (s *scoreSplitter) feed(delta string) {
	if s.pastFirst {
		s.emit(delta)
		return
	}
	if idx := strings.IndexByte(delta, '\n'); idx >= 0 {
		s.firstLine.WriteString(delta[:idx])
		s.pastFirst = true
		s.emit(delta[idx+1:])
		return
	}
	s.firstLine.WriteString(delta)
}

func (s *scoreSplitter) emit(text string) {
	if text == "" {
		return
	}
	s.narrative.WriteString(text)
	if s.onNarrative != nil {
		s.onNarrative(text)
	}
}

func (s *scoreSplitter) finish() (scoreLine, narrative string) {
	return s.firstLine.String(), s.narrative.String()
}
