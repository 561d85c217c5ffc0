// Package events is the event fabric: a per-message append-only log in
// Redis paired with a per-message pub/sub channel, plus the SSE framing
// used by the HTTP stream endpoint.
//
// Publishing appends the event to the log (assigning its monotone sequence
// number) and then broadcasts it on the channel. Subscribing opens the
// channel first, replays the log in stored order, and then tails the
// channel, de-duplicating by sequence number across the seam. Because the
// sequence travels inside the envelope, trimming the log ring never breaks
// the dedupe.
package events

import "encoding/json"

// Event types.
const (
	TypeSessionCreated   = "session_created"
	TypeThinkingChunk    = "thinking_chunk"
	TypeThinkingComplete = "thinking_complete"
	TypeIntentDetermined = "intent_determined"
	TypeStepUpdate       = "step_update"
	TypeData             = "data"
	TypeModelSelection   = "model_selection"
	TypeReportChunk      = "report_chunk"
	TypeChatChunk        = "chat_chunk"
	TypeEmotionChunk     = "emotion_chunk"
	TypeError            = "error"
	TypeHeartbeat        = "heartbeat"
	TypeAnalysisComplete = "analysis_complete"
)

// Data payload kinds (DataPayload.DataType).
const (
	DataTimeSeriesOriginal = "time_series_original"
	DataTimeSeriesFull     = "time_series_full"
	DataNews               = "news"
	DataAnomalyZones       = "anomaly_zones"
	DataEmotion            = "emotion"
)

// Event is the envelope stored in the log and broadcast on the channel.
type Event struct {
	// Seq is the event's position in the message's log. Heartbeats are
	// synthesized on the subscriber side and carry Seq -1.
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"session_id"`
	MessageID string          `json:"message_id"`
	Payload   json.RawMessage `json:"payload"`
}

// IsTerminal reports whether an event type ends the stream. Subscribers
// close cleanly after delivering a terminal event.
func IsTerminal(eventType string) bool {
	return eventType == TypeAnalysisComplete || eventType == TypeError
}

// LogKey returns the Redis key of a message's append-only event log.
func LogKey(messageID string) string { return "events:" + messageID }

// SeqKey returns the Redis key of a message's sequence counter.
func SeqKey(messageID string) string { return "events:" + messageID + ":seq" }

// ChannelName returns the pub/sub channel for a message's live events.
func ChannelName(messageID string) string { return "channel:" + messageID }
