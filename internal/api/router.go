// Package api provides the HTTP API for RainGauge.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/api/handler"
	"github.com/raingauge/raingauge/internal/api/middleware"
	"github.com/raingauge/raingauge/internal/auth"
	"github.com/raingauge/raingauge/internal/gauge"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	TokenService *auth.TokenService
	GaugeService *gauge.Service
	RunTrigger   handler.RunTrigger
	DB           handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "raingauge-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	gaugeHandler := handler.NewGaugeHandler(cfg.GaugeService)
	imputeHandler := handler.NewImputeHandler(cfg.RunTrigger, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.TokenService)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Gauge network endpoints
		r.Route("/gauges", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", gaugeHandler.ListGauges)
			r.Get("/{gaugeId}", gaugeHandler.GetGauge)
			// Network administration requires an admin token
			r.With(authMiddleware, middleware.RequireRole(auth.RoleAdmin)).
				Put("/{gaugeId}", gaugeHandler.UpsertGauge)
		})

		// Ad-hoc matrix imputation - expensive compute, strict rate limiting
		r.With(expensiveRateLimit).Post("/impute/matrix", imputeHandler.ImputeMatrix)

		// Stored-window run trigger (authenticated) - subject-based rate limiting
		r.Route("/runs", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(auth.RoleOperator))
			r.Use(middleware.RateLimitBySubject(middleware.ExpensiveRateLimit))
			r.Post("/", imputeHandler.TriggerRun)
		})
	})

	return r
}
