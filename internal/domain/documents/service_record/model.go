// Package service_record provides the ServiceRecord document: the work done on a
// vehicle together with the stock lots it consumed.
package service_record

import (
	"context"
	"strings"
	"time"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain/registers/service_parts"
)

// ServiceRecord is a completed or ongoing service job.
type ServiceRecord struct {
	ServiceID    int64     `db:"service_id" json:"serviceId"`
	VehicleID    string    `db:"vehicle_id" json:"vehicleId"`
	TechnicianID string    `db:"technician_id" json:"technicianId"`
	Description  string    `db:"description" json:"description"`
	ServiceDate  time.Time `db:"service_date" json:"serviceDate"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks business rules.
func (r *ServiceRecord) Validate(_ context.Context) error {
	r.VehicleID = strings.TrimSpace(r.VehicleID)
	r.Description = strings.TrimSpace(r.Description)

	if r.VehicleID == "" {
		return apperror.NewValidation("vehicle id is required").WithDetail("field", "vehicleId")
	}
	if r.ServiceDate.IsZero() {
		r.ServiceDate = time.Now().UTC()
	}
	return nil
}

// Detail is a service record with its current part usages.
type Detail struct {
	Record *ServiceRecord         `json:"record"`
	Parts  []*service_parts.Usage `json:"parts"`
}
