package api

import (
	"time"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// SessionResponse is returned by the session create and rename endpoints.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartAnalysisResponse is returned by GET /api/v1/analysis.
type StartAnalysisResponse struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// StatusResponse is the polling snapshot of a session's latest message.
type StatusResponse struct {
	SessionID string          `json:"session_id"`
	Title     string          `json:"title"`
	Message   *models.Message `json:"message,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

func sessionResponse(sess *models.Session) SessionResponse {
	return SessionResponse{
		SessionID: sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
}
