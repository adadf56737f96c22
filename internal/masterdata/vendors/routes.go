package vendors

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpMasterView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpMasterEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/deactivate", h.Deactivate)
	})
}
