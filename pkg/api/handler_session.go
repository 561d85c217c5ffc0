package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type renameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// createSessionHandler handles POST /api/v1/sessions.
func (s *Server) createSessionHandler(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	sess, err := s.sessions.Create(c.Request.Context(), owner(c), req.Title)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(sess))
}

// listSessionsHandler handles GET /api/v1/sessions.
func (s *Server) listSessionsHandler(c *gin.Context) {
	summaries, err := s.sessions.List(c.Request.Context(), owner(c))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// renameSessionHandler handles PATCH /api/v1/sessions/:id.
func (s *Server) renameSessionHandler(c *gin.Context) {
	var req renameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	sess, err := s.sessions.Rename(c.Request.Context(), owner(c), c.Param("id"), req.Title)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// deleteSessionHandler handles DELETE /api/v1/sessions/:id. Deleting a
// session that is already gone succeeds.
func (s *Server) deleteSessionHandler(c *gin.Context) {
	if err := s.sessions.Delete(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
