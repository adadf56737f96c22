package vendors

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler wires vendor endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	authz     authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), authz: mw}
}

type vendorForm struct {
	Code              string `json:"code" validate:"required"`
	Name              string `json:"name" validate:"required"`
	ContactPerson     string `json:"contact_person"`
	Phone             string `json:"phone"`
	Email             string `json:"email" validate:"omitempty,email"`
	Address           string `json:"address"`
	BankAccountName   string `json:"bank_account_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankIFSC          string `json:"bank_ifsc"`
	CreditDays        int    `json:"credit_days" validate:"gte=0,lte=365"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	limit, offset := shared.ParsePage(page, perPage)
	items, total, err := h.service.List(r.Context(), actor, ListFilters{
		Search:     q.Get("q"),
		ActiveOnly: q.Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vendors": items, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	v, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	var form vendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), actor, vendorFromForm(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	var form vendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), actor, id, vendorFromForm(form)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deactivated": true})
}

func vendorFromForm(f vendorForm) Vendor {
	return Vendor{
		Code:              f.Code,
		Name:              f.Name,
		ContactPerson:     f.ContactPerson,
		Phone:             f.Phone,
		Email:             f.Email,
		Address:           f.Address,
		BankAccountName:   f.BankAccountName,
		BankAccountNumber: f.BankAccountNumber,
		BankIFSC:          f.BankIFSC,
		CreditDays:        f.CreditDays,
	}
}
