package document_repo

import (
	"context"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain/documents/invoice"
	"serviceshop/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[invoice.Invoice](txManager, "invoices", "service_id", apperror.EntityInvoice),
	}
}

// GetByServiceID returns the invoice of a service.
func (r *InvoiceRepo) GetByServiceID(ctx context.Context, serviceID int64) (*invoice.Invoice, error) {
	return r.GetByKey(ctx, serviceID)
}

// upsertSQL keeps one invoice per service; regeneration rewrites lines and totals in place.
const upsertSQL = `
	INSERT INTO invoices (invoice_id, service_id, service_charge, parts_total_price, total_price, lines)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (service_id) DO UPDATE
	SET service_charge = EXCLUDED.service_charge,
	    parts_total_price = EXCLUDED.parts_total_price,
	    total_price = EXCLUDED.total_price,
	    lines = EXCLUDED.lines,
	    updated_at = now()
	RETURNING invoice_id, created_at, updated_at`

// Upsert creates or recomputes the invoice of a service.
func (r *InvoiceRepo) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, upsertSQL,
		inv.InvoiceID, inv.ServiceID, inv.ServiceCharge, inv.PartsTotalPrice, inv.TotalPrice, inv.Lines,
	).Scan(&inv.InvoiceID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, apperror.EntityInvoice, inv.InvoiceID)
	}
	return nil
}
