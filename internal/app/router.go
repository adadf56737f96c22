package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/ageing"
	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/billing/payables"
	"github.com/ledgerline/ledgerline/internal/billing/receivables"
	"github.com/ledgerline/ledgerline/internal/masterdata/customers"
	"github.com/ledgerline/ledgerline/internal/masterdata/vendors"
	"github.com/ledgerline/ledgerline/internal/payments"
	"github.com/ledgerline/ledgerline/internal/proposals"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	VendorsHandler     *vendors.Handler
	CustomersHandler   *customers.Handler
	PayablesHandler    *payables.Handler
	ReceivablesHandler *receivables.Handler
	ProposalsHandler   *proposals.Handler
	PaymentsHandler    *payments.Handler
	AgeingHandler      *ageing.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.VendorsHandler != nil {
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
	}
	if params.CustomersHandler != nil {
		r.Route("/customers", params.CustomersHandler.MountRoutes)
	}
	if params.PayablesHandler != nil {
		r.Route("/payables", params.PayablesHandler.MountRoutes)
	}
	if params.ReceivablesHandler != nil {
		r.Route("/receivables", params.ReceivablesHandler.MountRoutes)
	}
	if params.ProposalsHandler != nil {
		r.Route("/proposals", params.ProposalsHandler.MountRoutes)
	}
	if params.PaymentsHandler != nil {
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
	}
	if params.AgeingHandler != nil {
		r.Route("/ageing", params.AgeingHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
