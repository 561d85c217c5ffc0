package events

import "github.com/tickertalk/tickertalk/pkg/models"

// SessionCreatedPayload announces the session/message pair for a new run.
type SessionCreatedPayload struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
}

// ThinkingChunkPayload carries one narrated token of the intent classifier
// along with the accumulated narration so late renderers can reconstruct it.
type ThinkingChunkPayload struct {
	Chunk       string `json:"chunk"`
	Accumulated string `json:"accumulated"`
}

// ThinkingCompletePayload closes the narration phase.
type ThinkingCompletePayload struct {
	ThinkingContent string `json:"thinking_content"`
	TotalLength     int    `json:"total_length"`
}

// StepUpdatePayload reports a step transition.
type StepUpdatePayload struct {
	Step    int    `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// DataPayload wraps a typed data artifact.
type DataPayload struct {
	DataType string `json:"data_type"`
	Data     any    `json:"data"`
	// PredictionStartDay is set only for time_series_full.
	PredictionStartDay string `json:"prediction_start_day,omitempty"`
}

// EmotionPayload is the final sentiment artifact (DataPayload.Data for
// kind emotion).
type EmotionPayload struct {
	Score     float64 `json:"score"`
	Narrative string  `json:"narrative"`
}

// ChunkPayload carries one streamed token of report, chat, or emotion
// narration.
type ChunkPayload struct {
	Content string `json:"content"`
}

// ErrorPayload describes an infrastructure failure.
type ErrorPayload struct {
	Error           string `json:"error"`
	ErrorCode       string `json:"error_code"`
	RetryAble       bool   `json:"retry_able"`
	SuggestedAction string `json:"suggested_action"`
}

// IntentDeterminedPayload is the full intent record.
type IntentDeterminedPayload = models.Intent

// ModelSelectionPayload is the full back-test comparison result.
type ModelSelectionPayload = models.ModelSelection

// EmptyPayload is used for heartbeat and analysis_complete.
type EmptyPayload struct{}
