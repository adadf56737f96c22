package proposals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler wires proposal endpoints.
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

type createForm struct {
	PaymentDate string `json:"payment_date" validate:"required"`
	Items       []struct {
		BillID int64  `json:"bill_id" validate:"required,gt=0"`
		Amount string `json:"amount" validate:"required"`
	} `json:"items" validate:"required,min=1,dive"`
}

type accountsForm struct {
	Decisions []struct {
		ItemID int64   `json:"item_id" validate:"required,gt=0"`
		Action string  `json:"action" validate:"required,oneof=approve hold reject"`
		Amount *string `json:"amount"`
		Reason string  `json:"reason"`
	} `json:"decisions" validate:"required,min=1,dive"`
}

type ownerForm struct {
	Decisions []struct {
		ItemID int64   `json:"item_id" validate:"required,gt=0"`
		Action string  `json:"action" validate:"required,oneof=approve defer reject"`
		Amount *string `json:"amount"`
		Reason string  `json:"reason"`
	} `json:"decisions" validate:"required,min=1,dive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	q := r.URL.Query()
	createdBy, _ := strconv.ParseInt(q.Get("created_by"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	limit, offset := shared.ParsePage(page, perPage)
	items, total, err := h.service.List(r.Context(), actor, ListFilters{
		Status:    Status(q.Get("status")),
		CreatedBy: createdBy,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"proposals": items, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}
	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) AvailableBills(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	bills, err := h.service.AvailableBills(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	var form createForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paymentDate, err := time.Parse(dateLayout, form.PaymentDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
		return
	}
	in := CreateInput{PaymentDate: paymentDate}
	for _, item := range form.Items {
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item amount must be a decimal number")
			return
		}
		in.Items = append(in.Items, ItemInput{BillID: item.BillID, Amount: amount})
	}
	created, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}
	submitted, err := h.service.Submit(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitted)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}
	if err := h.service.DeleteDraft(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) AccountsAction(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}
	var form accountsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decisions := make([]AccountsDecision, 0, len(form.Decisions))
	for _, d := range form.Decisions {
		amount, err := parseAmount(d.Amount)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		decisions = append(decisions, AccountsDecision{
			ItemID: d.ItemID,
			Action: AccountsAction(d.Action),
			Amount: amount,
			Reason: d.Reason,
		})
	}
	p, err := h.service.AccountsAction(r.Context(), actor, id, decisions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) OwnerAction(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}
	var form ownerForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decisions := make([]OwnerDecision, 0, len(form.Decisions))
	for _, d := range form.Decisions {
		amount, err := parseAmount(d.Amount)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		decisions = append(decisions, OwnerDecision{
			ItemID: d.ItemID,
			Action: OwnerAction(d.Action),
			Amount: amount,
			Reason: d.Reason,
		})
	}
	p, err := h.service.OwnerAction(r.Context(), actor, id, decisions)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func parseAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, shared.Validationf("amount must be a decimal number")
	}
	return &d, nil
}
