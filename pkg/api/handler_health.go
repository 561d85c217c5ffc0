package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /health. It is unauthenticated so load
// balancers can probe it.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Redis:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Redis: "ok"})
}
