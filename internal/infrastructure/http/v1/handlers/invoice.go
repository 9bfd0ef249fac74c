package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Generate handles POST /service-records/:id/invoice
func (h *InvoiceHandler) Generate(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.GenerateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.Generate(c.Request.Context(), serviceID, req.ServiceCharge)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}

// Get handles GET /service-records/:id/invoice
func (h *InvoiceHandler) Get(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Get(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromInvoice(inv))
}
