package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles HTTP requests for the item catalog.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
	policy  *item.RestockPolicy
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, service *item.Service, policy *item.RestockPolicy) *ItemHandler {
	return &ItemHandler{
		BaseHandler: base,
		service:     service,
		policy:      policy,
	}
}

// List handles GET /inventory/items
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.ItemListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
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

// Get handles GET /inventory/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// Create handles POST /inventory/items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, it)
}

// Update handles PUT /inventory/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	it, err := h.service.GetByID(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(it)
	if err := h.service.Update(ctx, it); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// Delete handles DELETE /inventory/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// LowStock handles GET /inventory/items/low-stock
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.LowStockResponse{Rule: h.policy.Rule(), Items: items})
}
