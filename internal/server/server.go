// Package server exposes the board, lifecycle, upload and portfolio operations
// over HTTP. All /api routes require the agent identity headers; health probes
// do not.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/config"
	"github.com/udayshankar95/central-farming-tool/internal/usecase"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// Services bundles the use cases the HTTP layer fronts.
type Services struct {
	Board     *usecase.BoardService
	Lifecycle *usecase.LifecycleService
	Ingest    *usecase.IngestService
	Portfolio *usecase.PortfolioService
	Agents    *usecase.AgentService
}

// Server is the HTTP server for the farming tool API.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	services   Services
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer builds the router and wires all routes.
func NewServer(cfg *config.Config, services Services) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("X-Agent-Id", "X-Agent-Name", "X-Agent-Email", "X-Request-Id", "Content-Type")
	engine.Use(cors.New(corsConfig))

	server := &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: engine,
		},
		engine:   engine,
		services: services,
	}

	engine.GET("/health", server.handleHealth)
	engine.GET("/ready", server.handleReady)

	api := engine.Group("/api")
	api.Use(sessionMiddleware(services.Agents))
	{
		api.GET("/board", server.handleListBoard)
		api.POST("/board/ensure", server.handleEnsureItems)
		api.POST("/board/activate", server.handleActivateItems)
		api.POST("/board/reset", server.handleResetItems)
		api.POST("/items/:id/transition", server.handleProposeTransition)
		api.GET("/items/:id/activity", server.handleItemHistory)
		api.POST("/transitions/commit", server.handleCommitTransition)
		api.POST("/uploads/partners", server.handleUploadPartners)
		api.POST("/uploads/metrics", server.handleUploadMetrics)
		api.GET("/portfolio", server.handlePortfolio)
		api.GET("/agents", server.handleListAgents)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return server
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving in the background.
func (s *Server) Start() {
	utils.SafeGo(func() {
		logger.Log.Info("Starting API server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("API server error", zap.Error(err))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("Panic in API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	logger.Log.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "UP",
		Version: "1.0.0",
	})
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.Now().Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}
