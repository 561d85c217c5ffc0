package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tickertalk/tickertalk/pkg/session"
	"github.com/tickertalk/tickertalk/pkg/store"
)

// abortError maps service errors to HTTP responses.
func abortError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to a different owner"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
