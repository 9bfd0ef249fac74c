package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
)

// AuditHandler exposes the ledger audit trail.
type AuditHandler struct {
	*BaseHandler
	history audit.History
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history audit.History) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// History handles GET /audit/:entityType/:entityId
func (h *AuditHandler) History(c *gin.Context) {
	entityType := c.Param("entityType")
	switch entityType {
	case apperror.EntityItem, apperror.EntityStock, apperror.EntityPurchase,
		apperror.EntityServiceRecord, apperror.EntityInvoice, apperror.EntityRelease:
	default:
		h.Error(c, apperror.NewValidation("unknown entity type").WithDetail("entityType", entityType))
		return
	}

	limit, ok := h.Limit(c, domain.DefaultPageSize)
	if !ok {
		return
	}

	entries, err := h.history.History(c.Request.Context(), entityType, c.Param("entityId"), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"entries": entries})
}
