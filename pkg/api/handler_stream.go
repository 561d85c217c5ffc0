package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tickertalk/tickertalk/pkg/events"
)

// streamHandler handles GET /api/v1/stream. It replays the message's full
// event history and then tails the live channel as server-sent events,
// closing after a terminal event. Disconnecting tears down only this
// subscription; the producing orchestration keeps running.
func (s *Server) streamHandler(c *gin.Context) {
	messageID := c.Query("message_id")
	if messageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id query parameter is required"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ch, err := s.streams.Subscribe(c.Request.Context(), messageID)
	if err != nil {
		abortError(c, err)
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	_, _ = c.Writer.Write(events.FormatSSEComment("stream open"))
	flusher.Flush()

	for evt := range ch {
		frame, err := events.FormatSSE(evt)
		if err != nil {
			slog.Warn("Skipping unencodable event", "message_id", messageID, "error", err)
			continue
		}
		if _, err := c.Writer.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}
}
