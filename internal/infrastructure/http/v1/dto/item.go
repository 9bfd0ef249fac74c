package dto

import (
	"serviceshop/internal/domain/catalogs/item"
)

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Brand        string `json:"brand"`
	Unit         string `json:"unit"`
	RestockLevel int64  `json:"restockLevel"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateItemRequest) ToEntity() *item.Item {
	return &item.Item{
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Brand:        r.Brand,
		Unit:         r.Unit,
		RestockLevel: r.RestockLevel,
	}
}

// UpdateItemRequest is the request body for updating an item.
type UpdateItemRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Brand        string `json:"brand"`
	Unit         string `json:"unit"`
	RestockLevel int64  `json:"restockLevel"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateItemRequest) ApplyTo(it *item.Item) {
	it.Name = r.Name
	it.Description = r.Description
	it.Category = r.Category
	it.Brand = r.Brand
	it.Unit = r.Unit
	it.RestockLevel = r.RestockLevel
}

// ItemListQuery holds item list filters.
type ItemListQuery struct {
	PageQuery
	Search   string `form:"search"`
	Category string `form:"category"`
}

// ToFilter converts query to domain filter.
func (q ItemListQuery) ToFilter() item.Filter {
	return item.Filter{
		Search:   q.Search,
		Category: q.Category,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
}

// LowStockResponse lists items flagged by the restock rule.
type LowStockResponse struct {
	Rule  string                   `json:"rule"`
	Items []*item.WithAvailability `json:"items"`
}
