package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	financeapp "github.com/libraria/acquisitions/internal/application/finance"
	"github.com/libraria/acquisitions/internal/domain/invoice"
	"github.com/libraria/acquisitions/internal/infrastructure/exchange"
)

// InvoiceHandler exposes the financial engine over HTTP. The invoice
// and its lines travel in the request body; persistence of the result
// belongs to the caller.
type InvoiceHandler struct {
	BaseHandler
	service *financeapp.InvoiceFinancialService
	tenant  string
	logger  *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *financeapp.InvoiceFinancialService, tenant string, logger *zap.Logger) *InvoiceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandler{
		service: service,
		tenant:  tenant,
		logger:  logger,
	}
}

// RegisterRoutes registers the invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.POST("/:id/adjustments/recalculate", h.RecalculateAdjustments)
	invoices.POST("/:id/reconcile", h.Reconcile)
}

var errPathBodyMismatch = errors.New("invoice id in path does not match body")

// InvoiceRequest is the request body for both engine operations
type InvoiceRequest struct {
	Invoice invoice.Invoice       `json:"invoice" binding:"required"`
	Lines   []invoice.InvoiceLine `json:"lines"`
}

// validate checks the path id against the body and the invoice currency
func (r *InvoiceRequest) validate(pathID string) error {
	id, err := uuid.Parse(pathID)
	if err != nil {
		return err
	}
	if r.Invoice.ID != id {
		return errPathBodyMismatch
	}
	return r.Invoice.Currency.Validate()
}

// RecalculateAdjustments re-prorates the invoice-level adjustments
// across the lines and returns the updated lines and totals.
func (h *InvoiceHandler) RecalculateAdjustments(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if err := req.validate(c.Param("id")); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := exchange.WithTenant(c.Request.Context(), h.tenant)
	result, err := h.service.RecalculateAdjustments(ctx, &req.Invoice, req.Lines)
	if err != nil {
		h.DomainFailure(c, err)
		return
	}
	h.Success(c, result)
}

// Reconcile runs the fund-transaction reconciliation workflow
func (h *InvoiceHandler) Reconcile(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if err := req.validate(c.Param("id")); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := exchange.WithTenant(c.Request.Context(), h.tenant)
	result, err := h.service.ReconcileInvoice(ctx, &req.Invoice, req.Lines)
	if err != nil {
		h.DomainFailure(c, err)
		return
	}
	h.Success(c, result)
}
