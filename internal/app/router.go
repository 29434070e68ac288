package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/platform/httpx"
	"github.com/taskhub/taskhub/internal/tasks"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Errors        *httpx.ErrorResponder
	Authenticator auth.Authenticator
	AuthHandler   *auth.Handler
	TasksHandler  *tasks.Handler
	Health        *HealthHandler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Errors:  params.Errors,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusNotFound, httpx.ErrorBody{Error: "Route not found", Code: "NotFound"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusMethodNotAllowed, httpx.ErrorBody{Error: "Method not allowed", Code: "MethodNotAllowed"})
	})

	if params.Health != nil {
		r.Get("/health", params.Health.ServeHTTP)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimiter(params.Config))
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/tasks", func(r chi.Router) {
			r.Use(auth.Guard(params.Authenticator, params.Errors))
			params.TasksHandler.MountRoutes(r)
		})
	})

	return r
}
