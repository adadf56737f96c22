package receivables

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

// Handler wires receivable bill endpoints.
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
	CustomerID     int64  `json:"customer_id" validate:"required,gt=0"`
	InvoiceNumber  string `json:"invoice_number" validate:"required"`
	InvoiceDate    string `json:"invoice_date" validate:"required"`
	DispatchDate   string `json:"dispatch_date" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	CreditDays     int    `json:"credit_days" validate:"gte=0,lte=365"`
	DeliveryMode   string `json:"delivery_mode"`
	DeliveryPerson string `json:"delivery_person"`
	CourierName    string `json:"courier_name"`
	Remarks        string `json:"remarks"`
}

type updateForm struct {
	InvoiceNumber   *string `json:"invoice_number"`
	InvoiceDate     *string `json:"invoice_date"`
	DispatchDate    *string `json:"dispatch_date"`
	Amount          *string `json:"amount"`
	CreditDays      *int    `json:"credit_days"`
	Remarks         *string `json:"remarks"`
	ExpectedVersion *int    `json:"expected_version"`
}

type deliveryForm struct {
	Status string `json:"status" validate:"required"`
}

type collectionForm struct {
	Amount         string `json:"amount" validate:"required"`
	CollectionDate string `json:"collection_date"`
	Mode           string `json:"mode"`
	Reference      string `json:"reference"`
}

type cancelForm struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	q := r.URL.Query()
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	limit, offset := shared.ParsePage(page, perPage)
	bills, total, err := h.service.List(r.Context(), actor, ListFilters{
		CustomerID:       customerID,
		CollectionStatus: lifecycle.PaymentStatus(q.Get("collection_status")),
		DeliveryStatus:   lifecycle.DeliveryStatus(q.Get("delivery_status")),
		OverdueOnly:      q.Get("overdue") == "true",
		Search:           q.Get("q"),
		Limit:            limit,
		Offset:           offset,
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
	dispatchDate, err := time.Parse(dateLayout, form.DispatchDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dispatch_date must be YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number")
		return
	}
	created, err := h.service.Create(r.Context(), actor, CreateBillInput{
		CustomerID:     form.CustomerID,
		InvoiceNumber:  form.InvoiceNumber,
		InvoiceDate:    invoiceDate,
		DispatchDate:   dispatchDate,
		Amount:         amount,
		CreditDays:     form.CreditDays,
		DeliveryMode:   form.DeliveryMode,
		DeliveryPerson: form.DeliveryPerson,
		CourierName:    form.CourierName,
		Remarks:        form.Remarks,
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

func (h *Handler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	var form deliveryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	updated, err := h.service.UpdateDeliveryStatus(r.Context(), actor, id, lifecycle.DeliveryStatus(form.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) RecordCollection(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.PrincipalFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	var form collectionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal number")
		return
	}
	collectionDate := time.Now()
	if form.CollectionDate != "" {
		collectionDate, err = time.Parse(dateLayout, form.CollectionDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "collection_date must be YYYY-MM-DD")
			return
		}
	}
	updated, err := h.service.RecordCollection(r.Context(), actor, id, CollectionInput{
		Amount:         amount,
		CollectionDate: collectionDate,
		Mode:           form.Mode,
		Reference:      form.Reference,
	})
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
		InvoiceNumber:   form.InvoiceNumber,
		CreditDays:      form.CreditDays,
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
	if form.DispatchDate != nil {
		t, err := time.Parse(dateLayout, *form.DispatchDate)
		if err != nil {
			return UpdateBillCommand{}, shared.Validationf("dispatch_date must be YYYY-MM-DD")
		}
		cmd.DispatchDate = &t
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
