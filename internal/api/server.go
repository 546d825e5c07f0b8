package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/gateway"
	"github.com/termgate/termgate/internal/policy"
)

// Server provides the optional HTTP API next to the MCP surface: health,
// policy inspection, direct command execution and the event stream.
type Server struct {
	gateway    *gateway.Gateway
	policy     *policy.SafetyPolicy
	events     *EventStream
	config     *config.HTTPConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *logrus.Logger
}

// NewServer creates a new API server
func NewServer(gw *gateway.Gateway, safetyPolicy *policy.SafetyPolicy, events *EventStream, cfg *config.HTTPConfig, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	server := &Server{
		gateway: gw,
		policy:  safetyPolicy,
		events:  events,
		config:  cfg,
		router:  router,
		logger:  logger,
	}

	server.registerRoutes()

	return server
}

// Start starts the API server
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("HTTP API is disabled")
		return nil
	}

	s.logger.Infof("Starting HTTP API on %s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("HTTP API error: %v", err)
		}
	}()

	return nil
}

// Shutdown stops the API server
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP API...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP API shutdown error: %w", err)
	}

	s.logger.Info("HTTP API shutdown complete")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers the API routes
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.getHealth)
	s.router.GET("/gateway/policy", s.getPolicy)
	s.router.POST("/gateway/execute", s.executeCommand)
	s.router.GET("/ws", s.events.HandleConnection)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) getPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rules":  s.policy.RuleCounts(),
		"strict": s.policy.Strict(),
	})
}

func (s *Server) executeCommand(c *gin.Context) {
	var req gateway.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	if req.Command == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.gateway.Handle(c.Request.Context(), req)
	c.JSON(http.StatusOK, result)
}
