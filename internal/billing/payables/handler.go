package payables

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler wires payable bill endpoints.
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
	VendorID      int64  `json:"vendor_id" validate:"required,gt=0"`
	BillNumber    string `json:"bill_number" validate:"required"`
	InvoiceDate   string `json:"invoice_date" validate:"required"`
	ReceivingDate string `json:"receiving_date" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	CreditDays    int    `json:"credit_days" validate:"gte=0,lte=365"`
	CheckedBy     string `json:"checked_by"`
	Remarks       string `json:"remarks"`
}

type updateForm struct {
	BillNumber      *string `json:"bill_number"`
	InvoiceDate     *string `json:"invoice_date"`
	ReceivingDate   *string `json:"receiving_date"`
	Amount          *string `json:"amount"`
	CreditDays      *int    `json:"credit_days"`
	CheckedBy       *string `json:"checked_by"`
	Remarks         *string `json:"remarks"`
	ExpectedVersion *int    `json:"expected_version"`
}

type cancelForm struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	q := r.URL.Query()
	vendorID, _ := strconv.ParseInt(q.Get("vendor_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	limit, offset := shared.ParsePage(page, perPage)
	bills, total, err := h.service.List(r.Context(), actor, ListFilters{
		VendorID:      vendorID,
		PaymentStatus: lifecycle.PaymentStatus(q.Get("payment_status")),
		OverdueOnly:   q.Get("overdue") == "true",
		Search:        q.Get("q"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	bill, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
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
	invoiceDate, err := time.Parse(dateLayout, form.InvoiceDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice_date must be YYYY-MM-DD")
		return
	}
	receivingDate, err := time.Parse(dateLayout, form.ReceivingDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "receiving_date must be YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number")
		return
	}
	created, err := h.service.Create(r.Context(), actor, CreateBillInput{
		VendorID:      form.VendorID,
		BillNumber:    form.BillNumber,
		InvoiceDate:   invoiceDate,
		ReceivingDate: receivingDate,
		Amount:        amount,
		CreditDays:    form.CreditDays,
		CheckedBy:     form.CheckedBy,
		Remarks:       form.Remarks,
	})
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
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	var form updateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	cmd, err := commandFromForm(form)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), actor, id, cmd)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	var form cancelForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	cancelled, err := h.service.Cancel(r.Context(), actor, id, form.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cancelled)
}

func commandFromForm(form updateForm) (UpdateBillCommand, error) {
	cmd := UpdateBillCommand{
		BillNumber:      form.BillNumber,
		CreditDays:      form.CreditDays,
		CheckedBy:       form.CheckedBy,
		Remarks:         form.Remarks,
		ExpectedVersion: form.ExpectedVersion,
	}
	if form.InvoiceDate != nil {
		t, err := time.Parse(dateLayout, *form.InvoiceDate)
		if err != nil {
			return UpdateBillCommand{}, shared.Validationf("invoice_date must be YYYY-MM-DD")
		}
		cmd.InvoiceDate = &t
	}
	if form.ReceivingDate != nil {
		t, err := time.Parse(dateLayout, *form.ReceivingDate)
		if err != nil {
			return UpdateBillCommand{}, shared.Validationf("receiving_date must be YYYY-MM-DD")
		}
		cmd.ReceivingDate = &t
	}
	if form.Amount != nil {
		d, err := decimal.NewFromString(*form.Amount)
		if err != nil {
			return UpdateBillCommand{}, shared.Validationf("amount must be a decimal number")
		}
		cmd.Amount = &d
	}
	return cmd, nil
}
