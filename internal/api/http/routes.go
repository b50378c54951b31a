package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with configured routes, middleware, and handlers.
// It sets up the download API, health check, and Prometheus metrics endpoint.
func NewRouter(taskService TaskServiceI, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	taskHandler := NewTaskHandler(taskService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/download", taskHandler.Download)
		r.Post("/info", taskHandler.Info)
		r.Get("/progress/{taskID}", taskHandler.Progress)
		r.Get("/file/{filename}", taskHandler.File)
		r.Get("/stats", taskHandler.Stats)
		r.Get("/health", taskHandler.Health)
		r.Get("/test", taskHandler.SelfTest)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
