// Package types holds the value types of the ledger.
package types

import (
	"github.com/shopspring/decimal"

	"serviceshop/internal/core/apperror"
)

// Money is a price or total. Stored as NUMERIC(12, 2), rendered as a JSON string.
type Money = decimal.Decimal

// MoneyScale is the number of decimal places a stored price keeps.
const MoneyScale = 2

// maxMoney is the first value NUMERIC(12, 2) cannot hold.
var maxMoney = decimal.New(1, 10)

// MustMoney parses s and panics on error. For constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// CheckPrice rejects values a price column cannot store exactly:
// negatives, fractions of a cent and values of ten billion or more.
func CheckPrice(field string, m Money) error {
	switch {
	case m.IsNegative():
		return apperror.NewValidation(field+" cannot be negative").WithDetail("field", field)
	case !m.Equal(m.Truncate(MoneyScale)):
		return apperror.NewValidation(field+" has more than 2 decimal places").WithDetail("field", field)
	case m.GreaterThanOrEqual(maxMoney):
		return apperror.NewValidation(field+" is too large").WithDetail("field", field)
	}
	return nil
}

// LineTotal returns price multiplied by a whole quantity, rounded to cents.
func LineTotal(price Money, quantity int64) Money {
	return price.Mul(decimal.NewFromInt(quantity)).Round(MoneyScale)
}

// SumMoney adds values together.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
