package models

// Intent kind discriminator values. Persisted JSON carries the kind so
// readers of future versions can route without inspecting the shape.
const (
	IntentKindInScope    = "in_scope"
	IntentKindOutOfScope = "out_of_scope"
)

// Intent is the structured classification of a user query. It is immutable
// once saved on a message.
type Intent struct {
	Kind       string `json:"kind"`
	IsForecast bool   `json:"is_forecast"`

	// Tool enablement for the chat pipeline.
	UseResearch   bool `json:"use_research"`
	UseWebSearch  bool `json:"use_web_search"`
	UseDomainNews bool `json:"use_domain_news"`

	// Raw entity mention and its canonicalized full name, when the query
	// references an instrument.
	StockMention  string `json:"stock_mention,omitempty"`
	StockFullName string `json:"stock_full_name,omitempty"`

	// Raw keyword lists, one per tool.
	ResearchKeywords []string `json:"research_keywords,omitempty"`
	WebKeywords      []string `json:"web_keywords,omitempty"`
	NewsKeywords     []string `json:"news_keywords,omitempty"`

	// ForecastModel is empty when the user did not name a model; absence
	// triggers auto-selection.
	ForecastModel string `json:"forecast_model,omitempty"`
	HistoryDays   int    `json:"history_days,omitempty"`
	HorizonDays   int    `json:"horizon_days,omitempty"`

	Rationale string `json:"rationale,omitempty"`
	// Refusal carries the polite refusal text for out-of-scope queries.
	Refusal string `json:"refusal,omitempty"`
}

// InScope reports whether the query is within the assistant's remit.
func (i *Intent) InScope() bool { return i.Kind != IntentKindOutOfScope }

// DefaultIntent returns the conservative fallback used when classification
// output cannot be parsed: in scope, non-forecast, no tools.
func DefaultIntent() *Intent {
	return &Intent{Kind: IntentKindInScope}
}
