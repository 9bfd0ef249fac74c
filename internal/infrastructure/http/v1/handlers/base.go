// Package handlers adapts the ledger services to gin. Handlers bind and
// validate input, call one service method and render DTOs; errors are
// rendered by middleware.ErrorHandler.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
)

// BaseHandler provides the binding and response helpers shared by handlers.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the request body into obj and reports binding failures as
// validation errors. It returns false when the request was rejected.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindJSON(obj), "invalid request body")
}

// BindQuery is BindJSON for query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindQuery(obj), "invalid query parameters")
}

func (h *BaseHandler) bind(c *gin.Context, err error, message string) bool {
	if err == nil {
		return true
	}
	appErr := apperror.NewValidation(message)
	if fields := fieldErrors(err); fields != nil {
		appErr = appErr.WithDetail("fields", fields)
	} else {
		appErr = appErr.WithDetail("error", err.Error())
	}
	h.Error(c, appErr)
	return false
}

// Error registers error on Gin context and aborts request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID parses a positive integer path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || v <= 0 {
		h.Error(c, apperror.NewValidation("invalid "+param).WithDetail("field", param))
		return 0, false
	}
	return v, true
}

// Limit parses the ?limit= query parameter. A missing value yields def.
// Values outside 1..domain.MaxPageSize are rejected.
func (h *BaseHandler) Limit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > domain.MaxPageSize {
		h.Error(c, apperror.NewValidation("limit must be between 1 and "+strconv.Itoa(domain.MaxPageSize)).
			WithDetail("field", "limit"))
		return 0, false
	}
	return v, true
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
