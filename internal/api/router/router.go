// Package router assembles the chi router for the public API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bizlink-ai/concierge-platform/internal/http/handlers"
	httpmiddleware "github.com/bizlink-ai/concierge-platform/internal/http/middleware"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Chat               *handlers.ChatHandler
	Appointments       *handlers.AppointmentsHandler
	Health             *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.HandleHealth)
	}
	if cfg.Chat != nil {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/message", cfg.Chat.HandleMessage)
		})
	}
	if cfg.Appointments != nil {
		r.Post("/appointments", cfg.Appointments.HandleBook)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
