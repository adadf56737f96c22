package ageing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler wires ageing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw}
}

// MountRoutes registers ageing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.OpAgeingView))
		r.Get("/{side}/summary", h.Summary)
		r.Get("/{side}/ledger", h.Ledger)
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	report, err := h.service.Summary(r.Context(), actor, Side(chi.URLParam(r, "side")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	ledger, err := h.service.Ledger(r.Context(), actor, Side(chi.URLParam(r, "side")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ledger": ledger})
}
