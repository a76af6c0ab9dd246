// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hemato_backend/internal/config"
	"hemato_backend/internal/donor"
	"hemato_backend/internal/jobs"
	"hemato_backend/internal/middleware"
	"hemato_backend/internal/shared"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	donorHandler     *donor.Handler
	pendingExpiryJob *jobs.PendingExpiryJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	donorHandler *donor.Handler,
	pendingExpiryJob *jobs.PendingExpiryJob,
	identity shared.IdentityProvider,
	db *gorm.DB,
) (*Server, error) {
	if err := db.AutoMigrate(&donor.Donor{}); err != nil {
		return nil, fmt.Errorf("failed to migrate donor schema: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(identity, logger.Named("AuthMiddleware"))
	verifiedEmailMW := middleware.VerifiedEmailMiddleware()

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Hemato API is healthy!"})
	})

	// Registration/verification endpoints live at the root: verification
	// links in already-sent emails resolve against these exact paths.
	donorHandler.RegisterLegacyRoutes(router)

	v1 := router.Group("/api/v1")
	donorHandler.RegisterRoutes(v1, authMW, verifiedEmailMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:       httpServer,
		router:           router,
		cfg:              cfg,
		logger:           logger,
		donorHandler:     donorHandler,
		pendingExpiryJob: pendingExpiryJob,
	}, nil
}

// Start runs the HTTP server and the background jobs.
func (s *Server) Start() error {
	if s.pendingExpiryJob != nil {
		if err := s.pendingExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start pending expiry job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown gracefully stops the server and background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.pendingExpiryJob != nil {
		s.pendingExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
