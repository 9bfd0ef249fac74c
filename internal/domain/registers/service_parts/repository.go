package service_parts

import (
	"context"
)

// Repository defines operations on service part usages.
type Repository interface {
	// ListUsages returns a service's usages ordered by stock id.
	ListUsages(ctx context.Context, serviceID int64) ([]*Usage, error)

	// ListUsagesForUpdate is ListUsages with the rows locked.
	ListUsagesForUpdate(ctx context.Context, serviceID int64) ([]*Usage, error)

	// AddUsage inserts a usage or adds quantity to the existing row and returns the new total.
	AddUsage(ctx context.Context, serviceID, stockID, quantity int64) (int64, error)

	// DeleteUsages removes every usage of a service.
	DeleteUsages(ctx context.Context, serviceID int64) error

	// ListLines returns usages priced with their lots' selling prices.
	// Lots are share-locked so prices cannot change before the caller commits.
	ListLines(ctx context.Context, serviceID int64) ([]Line, error)
}

// ServiceChecker confirms service record existence.
type ServiceChecker interface {
	Exists(ctx context.Context, serviceID int64) (bool, error)
}
