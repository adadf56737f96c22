package payments

import (
	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpPaymentView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/bank-export", h.BankExport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpPaymentGenerate))
		r.Post("/generate", h.Generate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpSettlementRecord))
		r.Post("/details/{detailID}/settle", h.Settle)
		r.Post("/settle-batch", h.SettleBatch)
	})
}
