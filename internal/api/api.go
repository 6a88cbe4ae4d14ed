// Package api provides the HTTP server for the bot hosting control plane.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "bothive/internal/api/v1"
	"bothive/internal/artifacts"
	"bothive/internal/auth"
	internalconfig "bothive/internal/config"
	"bothive/internal/db"
	"bothive/internal/db/repositories"
	"bothive/internal/logging"
	"bothive/internal/sandbox"
	"bothive/internal/services"
)

type Server struct {
	cfg        *internalconfig.Config
	db         db.Database
	repos      *repositories.Repositories
	httpServer *http.Server
	driver     sandbox.Driver
}

func New(cfg *internalconfig.Config, database db.Database, driver sandbox.Driver) *Server {
	return &Server{
		cfg:    cfg,
		db:     database,
		repos:  repositories.New(database),
		driver: driver,
	}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", s.healthCheck)

	tokens := auth.NewTokenManager(s.cfg.JWTSecretKey, time.Duration(s.cfg.JWTAccessExpireMins)*time.Minute)
	authmw := auth.NewMiddleware(s.repos, tokens)
	store := artifacts.NewStore(s.cfg.BotStoragePath)
	botService := services.NewBotService(s.repos, store, s.driver)
	auditService := services.NewAuditService(s.repos)

	handlers := v1.NewAPIHandlers(s.repos, botService, auditService, authmw, tokens, s.driver)
	handlers.RegisterRoutes(router)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: router,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("API server error: %v", err)
		}
	}()

	logging.Info("API server listening on %s", s.httpServer.Addr)

	<-ctx.Done()

	logging.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "bothive",
	})
}
