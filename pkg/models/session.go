package models

import "time"

// SessionStatus is the lifecycle status of a conversation session.
type SessionStatus string

// Session lifecycle states.
const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

// maxHistoryTurns bounds the conversation transcript kept on a session.
const maxHistoryTurns = 20

// ConversationTurn is a single role/content pair in the session transcript.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session represents a multi-turn conversation. It is created by the HTTP
// layer and mutated only by the orchestrator owning its current message or
// by user-initiated rename/delete.
type Session struct {
	ID               string             `json:"id"`
	OwnerID          string             `json:"owner_id"`
	Title            string             `json:"title"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	MessageIDs       []string           `json:"message_ids"`
	CurrentMessageID string             `json:"current_message_id,omitempty"`
	History          []ConversationTurn `json:"history,omitempty"`
	Status           SessionStatus      `json:"status"`
}

// AppendTurn adds a transcript turn, keeping only the most recent entries.
func (s *Session) AppendTurn(role, content string) {
	s.History = append(s.History, ConversationTurn{Role: role, Content: content})
	if len(s.History) > maxHistoryTurns {
		s.History = s.History[len(s.History)-maxHistoryTurns:]
	}
}

// RecentHistory returns up to n most recent transcript turns.
func (s *Session) RecentHistory(n int) []ConversationTurn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
