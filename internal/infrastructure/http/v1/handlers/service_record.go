package handlers

import (
	"github.com/gin-gonic/gin"

	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/internal/infrastructure/http/v1/dto"
)

// ServiceRecordHandler handles HTTP requests for service records and their parts.
type ServiceRecordHandler struct {
	*BaseHandler
	service *service_record.Service
	parts   *service_parts.Service
}

// NewServiceRecordHandler creates a new service record handler.
func NewServiceRecordHandler(base *BaseHandler, service *service_record.Service, parts *service_parts.Service) *ServiceRecordHandler {
	return &ServiceRecordHandler{
		BaseHandler: base,
		service:     service,
		parts:       parts,
	}
}

// Create handles POST /service-records
func (h *ServiceRecordHandler) Create(c *gin.Context) {
	var req dto.CreateServiceRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	detail, err := h.service.Create(c.Request.Context(), req.ToEntity(), req.Parts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, detail)
}

// Get handles GET /service-records/:id
func (h *ServiceRecordHandler) Get(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, detail)
}

// Update handles PUT /service-records/:id
func (h *ServiceRecordHandler) Update(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateServiceRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	current, err := h.service.Get(ctx, serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	rec := current.Record
	req.ApplyTo(rec)
	detail, err := h.service.Update(ctx, rec, req.Parts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, detail)
}

// Delete handles DELETE /service-records/:id
func (h *ServiceRecordHandler) Delete(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), serviceID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// partsCall binds a parts request and runs op against the service id.
func (h *ServiceRecordHandler) partsCall(
	c *gin.Context,
	op func(ctx *gin.Context, serviceID int64, parts []service_parts.Part) ([]*service_parts.Usage, error),
) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PartsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	usages, err := op(c, serviceID, req.Parts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PartsResponse{ServiceID: serviceID, Parts: usages})
}

// AttachParts handles POST /service-records/:id/parts
func (h *ServiceRecordHandler) AttachParts(c *gin.Context) {
	h.partsCall(c, func(c *gin.Context, serviceID int64, parts []service_parts.Part) ([]*service_parts.Usage, error) {
		return h.parts.Attach(c.Request.Context(), serviceID, parts)
	})
}

// AddParts handles PATCH /service-records/:id/parts
func (h *ServiceRecordHandler) AddParts(c *gin.Context) {
	h.partsCall(c, func(c *gin.Context, serviceID int64, parts []service_parts.Part) ([]*service_parts.Usage, error) {
		return h.parts.Add(c.Request.Context(), serviceID, parts)
	})
}

// ReplaceParts handles PUT /service-records/:id/parts
func (h *ServiceRecordHandler) ReplaceParts(c *gin.Context) {
	h.partsCall(c, func(c *gin.Context, serviceID int64, parts []service_parts.Part) ([]*service_parts.Usage, error) {
		return h.parts.Replace(c.Request.Context(), serviceID, parts)
	})
}

// DeleteParts handles DELETE /service-records/:id/parts
func (h *ServiceRecordHandler) DeleteParts(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.parts.Restore(c.Request.Context(), serviceID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ListParts handles GET /service-records/:id/parts
func (h *ServiceRecordHandler) ListParts(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	usages, err := h.parts.Usages(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PartsResponse{ServiceID: serviceID, Parts: usages})
}
