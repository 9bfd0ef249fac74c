package types

import (
	"fmt"

	"serviceshop/internal/core/apperror"
)

// MaxQuantity bounds any single quantity: a purchase, a lot, a release or a
// part line. Sums over lots of one item stay far from int64 overflow.
const MaxQuantity int64 = 1_000_000_000

// CheckQuantity rejects negative quantities and quantities above MaxQuantity.
func CheckQuantity(field string, q int64) error {
	switch {
	case q < 0:
		return apperror.NewValidation(field+" cannot be negative").WithDetail("field", field)
	case q > MaxQuantity:
		return apperror.NewValidation(fmt.Sprintf("%s cannot exceed %d", field, MaxQuantity)).
			WithDetail("field", field)
	}
	return nil
}

// CheckPositiveQuantity is CheckQuantity that also rejects zero.
func CheckPositiveQuantity(field string, q int64) error {
	if q == 0 {
		return apperror.NewValidation(field+" must be positive").WithDetail("field", field)
	}
	return CheckQuantity(field, q)
}
