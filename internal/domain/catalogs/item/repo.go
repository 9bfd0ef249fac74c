package item

import (
	"context"

	"serviceshop/internal/domain"
)

// Repository defines the interface for item persistence.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID int64) (*Item, error)

	// FindByNameBrand returns NotFound when no item has this (name, brand) pair.
	FindByNameBrand(ctx context.Context, name, brand string) (*Item, error)

	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, itemID int64) error
	List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error)

	// Exists reports whether the item is present.
	Exists(ctx context.Context, itemID int64) (bool, error)

	// CountReferences counts stock lots and service usages that point at the item.
	CountReferences(ctx context.Context, itemID int64) (int64, error)

	// ListWithAvailability returns every item with its total available quantity.
	ListWithAvailability(ctx context.Context) ([]*WithAvailability, error)
}
