// Package api wires the HTTP surface: router, middleware stack and server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soares-ari/helpdesk-ai/internal/api/handlers"
	"github.com/soares-ari/helpdesk-ai/internal/api/middleware"
	"github.com/soares-ari/helpdesk-ai/internal/config"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	RequestTimeout   time.Duration

	Upload config.UploadConfig
}

// DefaultRouterConfig returns a default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
		RequestTimeout:   60 * time.Second,
	}
}

// Dependencies holds everything the API handlers need.
type Dependencies struct {
	Logger        *logger.Logger
	DB            handlers.Pinger
	Documents     handlers.DocumentRepository
	Conversations handlers.ConversationRepository
	ObjectStorage handlers.ObjectStorage
	Ingest        handlers.IngestEnqueuer
	Extractor     handlers.MediaTypeChecker
	ChatService   handlers.ChatService
}

// NewRouter creates the chi router with the full middleware stack and routes.
func NewRouter(deps Dependencies, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	log := deps.Logger

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}))

	r.Get("/health", handlers.HealthCheck())
	r.Get("/ready", handlers.ReadyCheck(deps.DB, deps.ObjectStorage))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity())

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", handlers.UploadDocument(deps.Documents, deps.ObjectStorage, deps.Ingest, deps.Extractor, cfg.Upload, log))
			r.Get("/", handlers.ListDocuments(deps.Documents, log))
			r.Get("/{id}", handlers.GetDocument(deps.Documents, log))
			r.Delete("/{id}", handlers.DeleteDocument(deps.Documents, deps.ObjectStorage, log))
			r.Get("/{id}/download", handlers.DownloadDocument(deps.Documents, deps.ObjectStorage, log))
		})

		r.Post("/chat", handlers.HandleChat(deps.ChatService, log))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", handlers.ListConversations(deps.Conversations, log))
			r.Get("/{id}", handlers.GetConversation(deps.Conversations, log))
			r.Get("/{id}/messages", handlers.GetConversationMessages(deps.Conversations, log))
		})
	})

	return r
}

// Server is the HTTP server wrapper.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates an HTTP server for the given handler.
func NewServer(handler http.Handler, cfg ServerConfig, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log.WithComponent("http_server"),
	}
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
