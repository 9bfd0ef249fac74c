package service_record

import (
	"context"
)

// Repository defines operations for service records.
type Repository interface {
	Create(ctx context.Context, r *ServiceRecord) error
	GetByID(ctx context.Context, serviceID int64) (*ServiceRecord, error)
	GetForUpdate(ctx context.Context, serviceID int64) (*ServiceRecord, error)
	Update(ctx context.Context, r *ServiceRecord) error

	// Delete removes the record; its invoice goes with it.
	Delete(ctx context.Context, serviceID int64) error

	Exists(ctx context.Context, serviceID int64) (bool, error)
}
