package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/id"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock register.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock register handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Status handles GET /inventory/items/:id/stock
// Empty lots are listed only with ?includeEmpty=true.
func (h *StockHandler) Status(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), itemID, c.Query("includeEmpty") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, status)
}

// AddStock handles POST /inventory/items/:id/stock
func (h *StockHandler) AddStock(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Quantity <= 0 {
		h.Error(c, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity"))
		return
	}

	lot := req.ToLot(itemID)
	if err := h.service.AddLot(c.Request.Context(), lot); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// UpdatePrice handles PATCH /inventory/stock/:stockId
func (h *StockHandler) UpdatePrice(c *gin.Context) {
	stockID, ok := h.ParseID(c, "stockId")
	if !ok {
		return
	}

	var req dto.UpdatePriceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := h.service.UpdateSellingPrice(c.Request.Context(), stockID, *req.SellingPrice)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lot)
}

// Release handles POST /inventory/items/:id/releases
func (h *StockHandler) Release(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReleaseStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ReleaseStock(c.Request.Context(), req.ToDomain(itemID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// ListReleases handles GET /inventory/items/:id/releases
func (h *StockHandler) ListReleases(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit, ok := h.Limit(c, 100)
	if !ok {
		return
	}

	rows, err := h.service.ListReleases(c.Request.Context(), itemID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ReleaseListResponse{ItemID: itemID, Releases: rows})
}

// ReverseRelease handles DELETE /inventory/releases/:batchId
func (h *StockHandler) ReverseRelease(c *gin.Context) {
	batchID, err := id.Parse(c.Param("batchId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid batchId format").WithDetail("field", "batchId"))
		return
	}

	if err := h.service.ReverseRelease(c.Request.Context(), batchID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
