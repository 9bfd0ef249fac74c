// Package invoice composes the invoice of a service record from its part usages.
package invoice

import (
	"fmt"
	"time"

	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/registers/service_parts"
)

// Invoice is the bill of one service record. Generate recomputes it from the
// current usages; the stored lines and totals are the ones it computed.
type Invoice struct {
	InvoiceID       string      `db:"invoice_id" json:"invoiceId"`
	ServiceID       int64       `db:"service_id" json:"serviceId"`
	ServiceCharge   types.Money `db:"service_charge" json:"serviceCharge"`
	PartsTotalPrice types.Money `db:"parts_total_price" json:"partsTotalPrice"`
	TotalPrice      types.Money `db:"total_price" json:"totalPrice"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`

	Lines []service_parts.Line `db:"lines" json:"partsUsed"`
}

// InvoiceID derives the invoice identifier from a service record id.
func InvoiceID(serviceID int64) string {
	return fmt.Sprintf("INV-%06d", serviceID)
}

// Compose prices lines and adds the service charge.
func Compose(serviceID int64, charge types.Money, lines []service_parts.Line) *Invoice {
	totals := make([]types.Money, 0, len(lines))
	for _, l := range lines {
		totals = append(totals, l.Total())
	}
	parts := types.SumMoney(totals...)

	if lines == nil {
		lines = []service_parts.Line{}
	}

	return &Invoice{
		InvoiceID:       InvoiceID(serviceID),
		ServiceID:       serviceID,
		ServiceCharge:   charge,
		PartsTotalPrice: parts,
		TotalPrice:      charge.Add(parts),
		Lines:           lines,
	}
}
