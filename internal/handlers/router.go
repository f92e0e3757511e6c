package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/itsmrval/willitbemax/internal/middleware"
)

// RouterConfig carries the HTTP-layer settings the router needs
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        http.Handler
}

// NewRouter wires the handler into a chi router
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(h.NotFound)

	r.Get("/health", h.HealthCheck)
	r.Get("/ws", h.HandleWebSocket)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))

		r.Get("/weekend", h.GetWeekend)
		r.Get("/hub", h.GetHubMetrics)
	})

	return r
}
