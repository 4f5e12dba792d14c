// Package server exposes the chat service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/pkg/config"
)

// ChatService is the conversation backend served by the API.
type ChatService interface {
	HandleTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	ExtractMail(ctx context.Context, req models.MailRequest) (*models.ChatResponse, error)
	History(ctx context.Context, conversationID string) ([]*models.Message, error)
	DeleteAll(ctx context.Context) (string, error)
}

type Server struct {
	chat   ChatService
	logger *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

func New(cfg config.ServerConfig, chat ChatService, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		chat:   chat,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(requestID(), accessLog(logger), recovery(logger))
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/mail/extract", s.handleMailExtract)
	api.GET("/conversations/:id/messages", s.handleHistory)
	api.DELETE("/chat-data", s.handleDeleteAll)
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
