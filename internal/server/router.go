package server

import (
	"net/http"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/api/handlers"
	"github.com/cloo-solutions/vdoc/internal/api/middleware"
	"github.com/cloo-solutions/vdoc/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const defaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	RAGHandler    *handlers.RAGHandler
	HealthHandler *handlers.HealthHandler
	CORSOrigins   []string
	MaxBodyBytes  int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Get)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/rag", cfg.RAGHandler.Query)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", api.ErrorCodeHeader},
		MaxAge:         300,
	})
}
