package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const dateLayout = "2006-01-02"

// IdempotencyChecker guards the batch generation endpoint against retried
// requests.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler wires payment endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	authz       authz.Middleware
	idempotency IdempotencyChecker
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, idempotency IdempotencyChecker) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), authz: mw, idempotency: idempotency}
}

type generateForm struct {
	ProposalID    int64  `json:"proposal_id" validate:"required,gt=0"`
	PaymentDate   string `json:"payment_date"`
	BankAccountID int64  `json:"bank_account_id" validate:"required,gt=0"`
}

type settlementForm struct {
	UTRNumber string `json:"utr_number" validate:"required"`
}

type settlementBatchForm struct {
	Settlements []struct {
		DetailID  int64  `json:"detail_id" validate:"required,gt=0"`
		UTRNumber string `json:"utr_number" validate:"required"`
	} `json:"settlements" validate:"required,min=1,dive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	q := r.URL.Query()
	proposalID, _ := strconv.ParseInt(q.Get("proposal_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	limit, offset := shared.ParsePage(page, perPage)
	items, total, err := h.service.List(r.Context(), actor, ListFilters{
		Status:     Status(q.Get("status")),
		ProposalID: proposalID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": items, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) BankExport(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	rows, err := h.service.BankExportRows(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	var form generateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var paymentDate time.Time
	if form.PaymentDate != "" {
		var err error
		paymentDate, err = time.Parse(dateLayout, form.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "payment.generate"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}

	created, err := h.service.GenerateFromProposal(r.Context(), actor, GenerateInput{
		ProposalID:    form.ProposalID,
		PaymentDate:   paymentDate,
		BankAccountID: form.BankAccountID,
	})
	if err != nil {
		// Release the key so a corrected retry is not locked out.
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	detailID, err := strconv.ParseInt(chi.URLParam(r, "detailID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid detail id")
		return
	}
	var form settlementForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.RecordSettlement(r.Context(), actor, SettlementInput{
		DetailID:  detailID,
		UTRNumber: form.UTRNumber,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) SettleBatch(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	var form settlementBatchForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs := make([]SettlementInput, 0, len(form.Settlements))
	for _, s := range form.Settlements {
		inputs = append(inputs, SettlementInput{DetailID: s.DetailID, UTRNumber: s.UTRNumber})
	}
	p, err := h.service.RecordSettlementBatch(r.Context(), actor, inputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
