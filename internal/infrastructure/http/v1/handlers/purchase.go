package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler handles HTTP requests for purchases.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Record handles POST /inventory/purchases
func (h *PurchaseHandler) Record(c *gin.Context) {
	var req dto.RecordPurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	receipt, err := h.service.Record(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, receipt)
}

// List handles GET /inventory/purchases
func (h *PurchaseHandler) List(c *gin.Context) {
	var q dto.PurchaseListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), purchase.ListFilter{
		ItemID: q.ItemID,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /inventory/purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.service.Get(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, receipt)
}

// Update handles PATCH /inventory/purchases/:id
func (h *PurchaseHandler) Update(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	receipt, err := h.service.Update(c.Request.Context(), req.ToDomain(purchaseID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, receipt)
}

// Delete handles DELETE /inventory/purchases/:id
func (h *PurchaseHandler) Delete(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), purchaseID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
