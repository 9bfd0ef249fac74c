package dto

import (
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/domain/registers/service_parts"
)

// CreateServiceRecordRequest is the request body for creating a service record.
type CreateServiceRecordRequest struct {
	VehicleID    string               `json:"vehicleId" binding:"required"`
	TechnicianID string               `json:"technicianId"`
	Description  string               `json:"description"`
	ServiceDate  *Date                `json:"serviceDate"`
	Parts        []service_parts.Part `json:"partsUsed"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateServiceRecordRequest) ToEntity() *service_record.ServiceRecord {
	return &service_record.ServiceRecord{
		VehicleID:    r.VehicleID,
		TechnicianID: r.TechnicianID,
		Description:  r.Description,
		ServiceDate:  r.ServiceDate.OrToday(),
	}
}

// UpdateServiceRecordRequest is the request body for updating a service record.
// A present partsUsed array replaces every attached part; an absent one keeps them.
type UpdateServiceRecordRequest struct {
	VehicleID    string                `json:"vehicleId" binding:"required"`
	TechnicianID string                `json:"technicianId"`
	Description  string                `json:"description"`
	ServiceDate  *Date                 `json:"serviceDate"`
	Parts        *[]service_parts.Part `json:"partsUsed"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateServiceRecordRequest) ApplyTo(rec *service_record.ServiceRecord) {
	rec.VehicleID = r.VehicleID
	rec.TechnicianID = r.TechnicianID
	rec.Description = r.Description
	if r.ServiceDate != nil && !r.ServiceDate.IsZero() {
		rec.ServiceDate = r.ServiceDate.Time
	}
}

// PartsRequest is the request body of the parts endpoints.
type PartsRequest struct {
	Parts []service_parts.Part `json:"partsUsed"`
}

// PartsResponse lists a service's usages after a change.
type PartsResponse struct {
	ServiceID int64                  `json:"serviceId"`
	Parts     []*service_parts.Usage `json:"partsUsed"`
}
