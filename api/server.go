// Package api provides the HTTP surface of the counseling service: REST
// endpoints for conversations, personas, and feedback, plus the SSE
// streaming chat endpoint that drives the turn pipeline.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/pipeline"
	"github.com/maumtalk/counselgo/pkg/store"
)

// GateFunc decides whether a request may start a counseling turn.
// Authentication and quota live outside this service; the gate is where a
// deployment plugs its own check in. A nil gate admits everything.
type GateFunc func(c *gin.Context) error

// Server is the HTTP API server
type Server struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	cfg      *config.Config
	logger   interfaces.Logger
	router   *gin.Engine
	server   *http.Server
	gate     GateFunc
}

// NewServer creates the API server around a wired pipeline and store
func NewServer(p *pipeline.Pipeline, st *store.Store, cfg *config.Config, logger interfaces.Logger, gate GateFunc) *Server {
	if cfg.LogLevel == "error" || cfg.LogLevel == "warn" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		pipeline: p,
		store:    st,
		cfg:      cfg,
		logger:   logger,
		router:   gin.New(),
		gate:     gate,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Name", "X-Request-ID"}
	s.router.Use(cors.New(corsConfig))

	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.identityMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1")
	{
		conversations := v1.Group("/conversations")
		{
			conversations.POST("", s.createConversation)
			conversations.GET("", s.listConversations)
			conversations.GET("/:conversation_id", s.getConversation)
			conversations.GET("/:conversation_id/messages", s.getConversationMessages)
			conversations.POST("/:conversation_id/messages/stream", s.streamChatMessage)
		}

		feedback := v1.Group("/feedback")
		{
			feedback.POST("/message", s.createMessageFeedback)
			feedback.GET("/message/:message_id", s.getMessageFeedback)
			feedback.POST("/conversation", s.createConversationRating)
		}

		personas := v1.Group("/personas")
		{
			personas.POST("", s.createPersona)
			personas.GET("/:persona_id", s.getPersona)
		}
	}
}

// Start runs the server until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", map[string]interface{}{
		"addr": s.server.Addr,
		"mode": gin.Mode(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop shuts the server down outside of Start's context
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}
