package invoice

import (
	"context"

	"serviceshop/internal/domain/registers/service_parts"
)

// Repository defines operations for invoices.
type Repository interface {
	// GetByServiceID returns NotFound when the service has no invoice yet.
	GetByServiceID(ctx context.Context, serviceID int64) (*Invoice, error)

	// Upsert creates the invoice or updates the existing row of its service in place.
	Upsert(ctx context.Context, inv *Invoice) error
}

// ServiceChecker confirms service record existence.
type ServiceChecker interface {
	Exists(ctx context.Context, serviceID int64) (bool, error)
}

// LineSource reads the priced part usages of a service.
type LineSource interface {
	ListLines(ctx context.Context, serviceID int64) ([]service_parts.Line, error)
}
