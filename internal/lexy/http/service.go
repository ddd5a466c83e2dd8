package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/conf"
	"github.com/lexyhq/lexy/internal/errors"
	"github.com/lexyhq/lexy/internal/repository"
	"github.com/lexyhq/lexy/internal/search"
	"github.com/lexyhq/lexy/internal/storage"
	"github.com/lexyhq/lexy/internal/transcription"
)

// Control exposes the app-level operations the API can trigger.
type Control interface {
	// Invoker returns the currently configured transcription invoker.
	Invoker() transcription.Invoker
	// SaveTranscriptionConfig applies new transcription settings and
	// rebuilds the invoker.
	SaveTranscriptionConfig(cfg conf.TranscriptionConfig) error
}

// Service is the HTTP front of the application.
type Service struct {
	conf    *conf.Config
	repo    repository.Repository
	store   storage.Store
	index   *search.Index
	control Control

	router *gin.Engine
	server *http.Server
}

// NewService wires the router with middleware and routes.
func NewService(cfg *conf.Config, repo repository.Repository, store storage.Store, index *search.Index, control Control) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
		corsMiddleware(),
	)

	s := &Service{
		conf:    cfg,
		repo:    repo,
		store:   store,
		index:   index,
		control: control,
		router:  router,
	}
	s.initRouter()
	return s
}

// ListenAndServe runs the HTTP server until it is shut down.
func (s *Service) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.conf.HTTPAddr,
		Handler: s.router,
	}
	log.Info().Msg("Starting HTTP server on " + s.conf.HTTPAddr)
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}
	log.Info().Msg("HTTP server stopped")
	return nil
}

// GetRouter exposes the router for tests.
func (s *Service) GetRouter() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Owner-ID, X-Plan-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
