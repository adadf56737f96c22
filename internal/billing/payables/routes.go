package payables

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// MountRoutes registers payable bill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpBillView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpBillCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpBillEdit))
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpBillCancel))
		r.Post("/{id}/cancel", h.Cancel)
	})
}
