package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ownerKey is the gin context key the bearer middleware stores the owner
// identity under.
const ownerKey = "owner"

// bearerOwner extracts the caller identity from the Authorization header.
// Token validation belongs to the fronting proxy; here the token itself
// names the owner that scopes session access.
func bearerOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}
		c.Set(ownerKey, token)
		c.Next()
	}
}

// owner returns the identity stored by bearerOwner.
func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// requestLogger logs one line per completed request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
