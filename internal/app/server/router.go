package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"nomina/internal/platform/config"
	"nomina/internal/platform/metrics"
	"nomina/internal/transport/http/api"
	laborhandler "nomina/internal/transport/http/handlers/labor"
	payrollhandler "nomina/internal/transport/http/handlers/payroll"
	"nomina/internal/transport/http/middleware"
)

// Deps is everything the HTTP surface needs; it carries no database handle so
// the router can be assembled over in-memory services.
type Deps struct {
	Config  config.Config
	Log     *zap.Logger
	Labor   laborhandler.Service
	Payroll payrollhandler.Service
	Jobs    laborhandler.JobQueue
	Perms   middleware.PermissionStore
	Metrics *metrics.Collector
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	var recorder middleware.RequestRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(d.Config.IsProduction()))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.Logger(log.Named("http"), recorder))
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.BodyLimit(d.Config.MaxBodyBytes))
	router.Use(middleware.Auth(d.Config.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.Config.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	runLimit := middleware.RateLimit(d.Config.RunRateLimit, time.Minute, log)
	router.Route("/api/v1", func(r chi.Router) {
		laborhandler.NewHandler(d.Labor, d.Jobs, d.Perms, runLimit).RegisterRoutes(r)
		payrollhandler.NewHandler(d.Payroll, d.Perms, runLimit).RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	return router
}
