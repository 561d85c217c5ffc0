package models

import "time"

// MessageStatus is the lifecycle status of a message.
type MessageStatus string

// Message lifecycle states.
const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusCompleted  MessageStatus = "completed"
	MessageStatusError      MessageStatus = "error"
)

// StreamStatus tracks the streaming side of a message independently of its
// lifecycle status.
type StreamStatus string

// Streaming states.
const (
	StreamStatusIdle      StreamStatus = "idle"
	StreamStatusStreaming StreamStatus = "streaming"
	StreamStatusCompleted StreamStatus = "completed"
	StreamStatusError     StreamStatus = "error"
)

// StepStatus is the state of a single analysis step.
type StepStatus string

// Step states. Transitions are monotone: a completed or errored step never
// returns to running or pending.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// Step is one entry in a message's structured progress.
type Step struct {
	Index   int        `json:"index"` // 1-based
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// ResolvedKeywords are the three tool keyword lists after entity resolution
// rewrote aliases to canonical names and injected the entity code.
type ResolvedKeywords struct {
	Research []string `json:"research,omitempty"`
	Web      []string `json:"web,omitempty"`
	News     []string `json:"news,omitempty"`
}

// SentimentResult is the output of the streaming sentiment scorer.
type SentimentResult struct {
	Score     float64 `json:"score"` // in [-1, +1]
	Narrative string  `json:"narrative"`
}

// ModelScore is one row in the model comparison table.
type ModelScore struct {
	Model      string  `json:"model"`
	AvgMAE     float64 `json:"avg_mae"` // +Inf encoded as failed=true
	Windows    int     `json:"windows"` // windows the model completed
	Failed     bool    `json:"failed"`  // no window produced a MAE
	IsBaseline bool    `json:"is_baseline"`
}

// ModelSelection is the persisted result of the rolling-window back-test.
type ModelSelection struct {
	SelectedModel        string       `json:"selected_model"`
	BestModel            string       `json:"best_model"`
	Baseline             string       `json:"baseline"`
	Comparison           []ModelScore `json:"model_comparison"`
	IsBetterThanBaseline bool         `json:"is_better_than_baseline"`
	UserSpecifiedModel   string       `json:"user_specified_model,omitempty"`
	Reason               string       `json:"model_selection_reason"`
}

// Message represents one request/response turn. It is created by the
// orchestrator on receipt of a user query and mutated exclusively by it.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ModelHint carries the optional model request parameter; it applies
	// when the classified intent names no model.
	ModelHint string `json:"model_hint,omitempty"`

	Intent   *Intent           `json:"intent,omitempty"`
	Entity   *Entity           `json:"entity,omitempty"`
	Keywords *ResolvedKeywords `json:"keywords,omitempty"`
	Steps    []Step            `json:"steps,omitempty"`

	// Emitted artifacts.
	OriginalSeries     []TimePoint       `json:"original_series,omitempty"`
	FullSeries         []TimePoint       `json:"full_series,omitempty"`
	PredictionStartDay string            `json:"prediction_start_day,omitempty"`
	News               []NewsItem        `json:"news,omitempty"`
	Research           []ResearchExcerpt `json:"research,omitempty"`
	Sentiment          *SentimentResult  `json:"sentiment,omitempty"`
	Selection          *ModelSelection   `json:"selection,omitempty"`
	ThinkingContent    string            `json:"thinking_content,omitempty"`
	Conclusion         string            `json:"conclusion,omitempty"`

	Status       MessageStatus `json:"status"`
	StreamStatus StreamStatus  `json:"stream_status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// SetStep updates the status of the step with the given 1-based index,
// enforcing monotone transitions. Unknown indexes are ignored.
func (m *Message) SetStep(index int, status StepStatus, note string) {
	for i := range m.Steps {
		if m.Steps[i].Index != index {
			continue
		}
		if m.Steps[i].Status == StepCompleted || m.Steps[i].Status == StepError {
			return
		}
		m.Steps[i].Status = status
		if note != "" {
			m.Steps[i].Message = note
		}
		return
	}
}
