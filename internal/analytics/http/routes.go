package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/tallercar/tallercar/internal/auth"
	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// MountRoutes registers the analytics endpoints. requireAuth guards every
// route when set.
func (h *Handler) MountRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export limit reached, retry later")
		}),
	)

	r.Route("/analytics", func(ar chi.Router) {
		if requireAuth != nil {
			ar.Use(requireAuth)
		}
		ar.Get("/financial-summary", h.handleFinancialSummary)
		ar.Get("/supplier-summary", h.handleSupplierSummary)
		ar.Get("/monthly-sales", h.handleMonthlySales)
		ar.Get("/overview", h.handleOverview)
		ar.Get("/vehicles-details", h.handleVehicleDetails)
		ar.Get("/vehicles/{vehicleID}/details", h.handleVehicleDetail)
		ar.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export/repairs-summary", h.handleExportRepairSummary)
			gr.Get("/export/invoice-items-detail", h.handleExportInvoiceItems)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		if user := strings.TrimSpace(principal.Username); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
