// Package api exposes the HTTP surface: record CRUD, job submission,
// translation requests, and the progress websocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"subtide/internal/logging"
	"subtide/internal/media"
	"subtide/internal/notify"
)

// Submitter queues new processing jobs.
type Submitter interface {
	Submit(sourceURL string, targetLanguages []string) (string, error)
}

// Records is the store surface the API reads and deletes through.
type Records interface {
	GetVideo(ctx context.Context, id string) (*media.Video, error)
	ListVideos(ctx context.Context) ([]*media.Video, error)
	DeleteVideo(ctx context.Context, id string) (bool, error)
	GetTranslation(ctx context.Context, videoID, lang string) (*media.Translation, error)
	ListTranslationLanguages(ctx context.Context, videoID string) ([]string, error)
}

// TranslationRunner translates a completed record on demand.
type TranslationRunner interface {
	Translate(ctx context.Context, video *media.Video, targetLanguage string) error
}

// Server hosts the HTTP API.
type Server struct {
	engine *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer wires routes onto a fresh engine listening on bind.
func NewServer(bind string, submitter Submitter, records Records, translator TranslationRunner, hub *notify.Hub, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	apiLogger := logging.WithComponent(logger, "api")
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(apiLogger))
	engine.Use(corsMiddleware())

	handlers := &handlers{
		submitter:  submitter,
		records:    records,
		translator: translator,
		hub:        hub,
		logger:     apiLogger,
	}
	registerRoutes(engine, handlers)

	return &Server{
		engine: engine,
		server: &http.Server{
			Addr:              bind,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: apiLogger,
	}
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", logging.String("bind", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return <-errCh
}
