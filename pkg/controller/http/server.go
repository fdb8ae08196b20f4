package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/utils/topic"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	webhookSecret string
	runStore      interfaces.RunStore
	events        *topic.Topic[model.RunEvent]
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the webhook secret
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithRunStore serves run history on the API endpoints
func WithRunStore(store interfaces.RunStore) Option {
	return func(c *config) {
		c.runStore = store
	}
}

// WithEventTopic streams run events on the websocket endpoint
func WithEventTopic(t *topic.Topic[model.RunEvent]) Option {
	return func(c *config) {
		c.events = t
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	webhookUC interfaces.WebhookUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// Webhook endpoint
	webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
	router.Post("/hooks/github", webhookHandler.Handle)

	// Run history API
	if cfg.runStore != nil {
		runsHandler := NewRunsHandler(cfg.runStore, cfg.events)
		router.Get("/api/runs", runsHandler.HandleList)
		router.Get("/api/runs/{runID}", runsHandler.HandleGet)
		router.Get("/api/runs/{runID}/events", runsHandler.HandleEvents)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
