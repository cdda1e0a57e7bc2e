package workshop

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the workshop endpoints behind the given auth
// middleware. Catalog resources are mounted only when their service is set.
func (h *Handler) MountRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	if h == nil {
		return
	}
	r.Group(func(r chi.Router) {
		if requireAuth != nil {
			r.Use(requireAuth)
		}
		r.Post("/invoices", h.createInvoice)
		r.Get("/invoices/{id}", h.showInvoice)
		r.Put("/invoices/{id}", h.updateInvoice)
		r.Delete("/invoices/{id}", h.removeInvoice)

		if h.clients != nil {
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.listClients)
				r.Post("/", h.createClient)
				r.Get("/{id}", h.showClient)
				r.Put("/{id}", h.updateClient)
				r.Delete("/{id}", h.removeClient)
			})
		}
		if h.vehicles != nil {
			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/", h.listVehicles)
				r.Post("/", h.createVehicle)
				r.Get("/{id}", h.showVehicle)
				r.Put("/{id}", h.updateVehicle)
				r.Delete("/{id}", h.removeVehicle)
			})
		}
		if h.repairs != nil {
			r.Route("/repairs", func(r chi.Router) {
				r.Get("/", h.listRepairs)
				r.Post("/", h.createRepair)
				r.Get("/{id}", h.showRepair)
				r.Put("/{id}", h.updateRepair)
				r.Delete("/{id}", h.removeRepair)
			})
		}
	})
}
