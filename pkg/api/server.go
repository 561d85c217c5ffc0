// Package api is the HTTP surface: session CRUD, analysis start, the SSE
// event stream, a polling status endpoint, and health.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tickertalk/tickertalk/pkg/events"
	"github.com/tickertalk/tickertalk/pkg/session"
)

// Streamer is the slice of the event fabric the stream endpoint uses.
type Streamer interface {
	Subscribe(ctx context.Context, messageID string) (<-chan events.Event, error)
}

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP handlers to the session service and event fabric.
type Server struct {
	sessions *session.Service
	streams  Streamer
	health   Pinger
}

// NewServer creates an API server.
func NewServer(sessions *session.Service, streams Streamer, health Pinger) *Server {
	return &Server{sessions: sessions, streams: streams, health: health}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/health", s.healthHandler)

	v1 := r.Group("/api/v1")
	v1.Use(bearerOwner())
	{
		v1.POST("/sessions", s.createSessionHandler)
		v1.GET("/sessions", s.listSessionsHandler)
		v1.PATCH("/sessions/:id", s.renameSessionHandler)
		v1.DELETE("/sessions/:id", s.deleteSessionHandler)
		v1.GET("/analysis", s.startAnalysisHandler)
		v1.GET("/stream", s.streamHandler)
		v1.GET("/status", s.statusHandler)
	}
	return r
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
