package dto

import (
	"time"

	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/documents/invoice"
)

// GenerateInvoiceRequest is the request body for invoice generation.
type GenerateInvoiceRequest struct {
	ServiceCharge types.Money `json:"serviceCharge" binding:"money"`
}

// InvoiceLineResponse is one priced part line.
type InvoiceLineResponse struct {
	StockID   int64       `json:"stockId"`
	ItemID    int64       `json:"itemId"`
	ItemName  string      `json:"itemName"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
	LineTotal types.Money `json:"lineTotal"`
}

// InvoiceResponse is the response body for an invoice.
type InvoiceResponse struct {
	InvoiceID       string                `json:"invoiceId"`
	ServiceID       int64                 `json:"serviceId"`
	ServiceCharge   types.Money           `json:"serviceCharge"`
	PartsTotalPrice types.Money           `json:"partsTotalPrice"`
	TotalPrice      types.Money           `json:"totalPrice"`
	PartsUsed       []InvoiceLineResponse `json:"partsUsed"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// FromInvoice converts domain invoice to response DTO.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, InvoiceLineResponse{
			StockID:   l.StockID,
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.Total(),
		})
	}
	return InvoiceResponse{
		InvoiceID:       inv.InvoiceID,
		ServiceID:       inv.ServiceID,
		ServiceCharge:   inv.ServiceCharge,
		PartsTotalPrice: inv.PartsTotalPrice,
		TotalPrice:      inv.TotalPrice,
		PartsUsed:       lines,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}
