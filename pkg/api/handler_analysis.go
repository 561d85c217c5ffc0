package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// startAnalysisHandler handles GET /api/v1/analysis. It creates or reuses
// a session, records the query as a new message, and spawns the background
// orchestration. A repeated request for a query that is still processing
// re-attaches instead of launching a duplicate.
func (s *Server) startAnalysisHandler(c *gin.Context) {
	query := c.Query("message")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message query parameter is required"})
		return
	}

	res, err := s.sessions.Start(c.Request.Context(), owner(c), c.Query("session_id"), query, c.Query("model"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartAnalysisResponse{
		SessionID: res.Session.ID,
		MessageID: res.Message.ID,
		Status:    string(models.MessageStatusProcessing),
	})
}

// statusHandler handles GET /api/v1/status. It returns the latest message
// snapshot for polling clients that do not hold a stream open.
func (s *Server) statusHandler(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id query parameter is required"})
		return
	}

	sess, msg, err := s.sessions.Status(c.Request.Context(), owner(c), sessionID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		SessionID: sess.ID,
		Title:     sess.Title,
		Message:   msg,
	})
}
