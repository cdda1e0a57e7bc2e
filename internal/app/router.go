package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/tallercar/tallercar/internal/analytics/http"
	"github.com/tallercar/tallercar/internal/auth"
	"github.com/tallercar/tallercar/internal/observability"
	"github.com/tallercar/tallercar/internal/platform/httpx"
	"github.com/tallercar/tallercar/internal/workshop"
	"github.com/tallercar/tallercar/jobs"
	"github.com/tallercar/tallercar/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Metrics          *observability.Metrics
	AuthHandler      *auth.Handler
	AnalyticsHandler *analytichttp.Handler
	WorkshopHandler  *workshop.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
	// RequireAuth guards /api resources. Nil leaves them open.
	RequireAuth func(http.Handler) http.Handler
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}
		params.AnalyticsHandler.MountRoutes(api, params.RequireAuth)
		params.WorkshopHandler.MountRoutes(api, params.RequireAuth)
	})

	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "")
	})
	return r
}
