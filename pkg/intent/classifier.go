// Package intent classifies free-form user queries into a structured
// intent via a streaming LLM call that narrates its reasoning before
// emitting a fenced JSON block.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// maxHistoryTurns bounds how much conversation context the classifier sees.
const maxHistoryTurns = 10

const systemPrompt = `You are the intent classifier of a financial analytics assistant.
The assistant answers questions about stocks, markets, companies, and the
economy, runs price forecasts, and holds casual conversation about itself.

Scope rules are permissive: mark a query out of scope ONLY when it is an
explicitly non-financial task such as writing code, translating text, or
composing poetry. Casual chat, greetings, and questions about the
assistant itself are in scope.

First, narrate your reasoning in plain prose for the user to read.
Then emit exactly one fenced JSON block:

` + "```json" + `
{
  "is_in_scope": true,
  "is_forecast": false,
  "use_research": false,
  "use_web_search": false,
  "use_domain_news": false,
  "stock_mention": "",
  "stock_full_name": "",
  "research_keywords": [],
  "web_keywords": [],
  "news_keywords": [],
  "forecast_model": "",
  "history_days": 365,
  "horizon_days": 30,
  "rationale": "",
  "refusal": ""
}
` + "```" + `

Field notes:
- stock_mention: the instrument exactly as the user wrote it; empty if none.
- stock_full_name: its canonical full name, best effort.
- forecast_model: only if the user named one (prophet, xgboost,
  randomforest, dlinear); leave empty to let the system choose.
- refusal: when out of scope, a short polite refusal addressed to the user.`

// Result pairs the parsed intent with the full narrated transcript.
type Result struct {
	Intent   *models.Intent
	Thinking string
}

// Classifier turns a user query into a structured intent.
type Classifier struct {
	llm llm.Client
}

// NewClassifier creates a Classifier on the given LLM client.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{llm: client}
}

// Classify runs the streaming classification. onThinking receives each
// narrated token before the JSON tail begins; it never sees JSON
// fragments. On parse failure the conservative default intent is returned
// with the raw model output as the transcript.
func (c *Classifier) Classify(ctx context.Context, query string, history []models.ConversationTurn, onThinking func(string)) (*Result, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	splitter := newFenceSplitter(onThinking)
	raw, err := c.llm.Stream(ctx, messages, splitter.feed)
	if err != nil {
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	narration, jsonText := splitter.finish()
	parsed, perr := parseIntent(jsonText)
	if perr != nil {
		slog.Warn("Intent JSON unparseable, using conservative default", "error", perr)
		return &Result{Intent: models.DefaultIntent(), Thinking: raw}, nil
	}
	return &Result{Intent: parsed, Thinking: narration}, nil
}

// wireIntent mirrors the JSON schema the prompt asks for.
type wireIntent struct {
	IsInScope        bool     `json:"is_in_scope"`
	IsForecast       bool     `json:"is_forecast"`
	UseResearch      bool     `json:"use_research"`
	UseWebSearch     bool     `json:"use_web_search"`
	UseDomainNews    bool     `json:"use_domain_news"`
	StockMention     string   `json:"stock_mention"`
	StockFullName    string   `json:"stock_full_name"`
	ResearchKeywords []string `json:"research_keywords"`
	WebKeywords      []string `json:"web_keywords"`
	NewsKeywords     []string `json:"news_keywords"`
	ForecastModel    string   `json:"forecast_model"`
	HistoryDays      int      `json:"history_days"`
	HorizonDays      int      `json:"horizon_days"`
	Rationale        string   `json:"rationale"`
	Refusal          string   `json:"refusal"`
}

func parseIntent(jsonText string) (*models.Intent, error) {
	if strings.TrimSpace(jsonText) == "" {
		return nil, fmt.Errorf("no JSON block in classifier output")
	}
	var w wireIntent
	if err := json.Unmarshal([]byte(jsonText), &w); err != nil {
		return nil, fmt.Errorf("failed to decode intent JSON: %w", err)
	}

	kind := models.IntentKindInScope
	if !w.IsInScope {
		kind = models.IntentKindOutOfScope
	}
	return &models.Intent{
		Kind:             kind,
		IsForecast:       w.IsForecast,
		UseResearch:      w.UseResearch,
		UseWebSearch:     w.UseWebSearch,
		UseDomainNews:    w.UseDomainNews,
		StockMention:     strings.TrimSpace(w.StockMention),
		StockFullName:    strings.TrimSpace(w.StockFullName),
		ResearchKeywords: w.ResearchKeywords,
		WebKeywords:      w.WebKeywords,
		NewsKeywords:     w.NewsKeywords,
		ForecastModel:    strings.ToLower(strings.TrimSpace(w.ForecastModel)),
		HistoryDays:      w.HistoryDays,
		HorizonDays:      w.HorizonDays,
		Rationale:        w.Rationale,
		Refusal:          w.Refusal,
	}, nil
}
