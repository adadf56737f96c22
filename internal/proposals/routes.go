package proposals

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// MountRoutes registers proposal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpProposalView))
		r.Get("/", h.List)
		r.Get("/available-bills", h.AvailableBills)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpProposalCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpProposalSubmit))
		r.Post("/{id}/submit", h.Submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpProposalDelete))
		r.Delete("/{id}", h.DeleteDraft)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpAccountsAction))
		r.Post("/{id}/accounts-review", h.AccountsAction)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpOwnerAction))
		r.Post("/{id}/owner-decision", h.OwnerAction)
	})
}
