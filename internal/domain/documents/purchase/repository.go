package purchase

import (
	"context"

	"serviceshop/internal/domain"
)

// Repository defines operations for purchase documents.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, purchaseID int64) (*Purchase, error)
	GetForUpdate(ctx context.Context, purchaseID int64) (*Purchase, error)
	Update(ctx context.Context, p *Purchase) error
	Delete(ctx context.Context, purchaseID int64) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Purchase], error)
}

// ItemChecker confirms item existence.
type ItemChecker interface {
	Exists(ctx context.Context, itemID int64) (bool, error)
}
