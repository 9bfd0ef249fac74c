// Package item provides the parts catalog.
// An item is a kind of part; its stock is held in lots by the stock register.
package item

import (
	"context"
	"strings"
	"time"

	"serviceshop/internal/core/apperror"
)

// Item is a catalog entry for a part sold or consumed by the shop.
type Item struct {
	ItemID       int64     `db:"item_id" json:"itemId"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Category     string    `db:"category" json:"category"`
	Brand        string    `db:"brand" json:"brand"`
	Unit         string    `db:"unit" json:"unit"`
	RestockLevel int64     `db:"restock_level" json:"restockLevel"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks business rules.
func (i *Item) Validate(_ context.Context) error {
	i.Name = strings.TrimSpace(i.Name)
	i.Brand = strings.TrimSpace(i.Brand)
	i.Category = strings.TrimSpace(i.Category)

	if i.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(i.Name) > 200 {
		return apperror.NewValidation("name exceeds 200 characters").WithDetail("field", "name")
	}
	if i.RestockLevel < 0 {
		return apperror.NewValidation("restock level cannot be negative").
			WithDetail("field", "restockLevel")
	}
	if i.Unit == "" {
		i.Unit = "pcs"
	}
	return nil
}

// WithAvailability is an item together with the sum of its lots.
type WithAvailability struct {
	Item
	Available int64 `db:"available" json:"available"`
}

// Filter narrows item lists.
type Filter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}
