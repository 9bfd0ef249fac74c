package invoice

import (
	"context"
	"fmt"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain/audit"
	"serviceshop/pkg/logger"
)

// Service generates and reads invoices.
type Service struct {
	repo      Repository
	lines     LineSource
	services  ServiceChecker
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new invoice service.
func NewService(repo Repository, lines LineSource, services ServiceChecker, txManager tx.Manager, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		lines:     lines,
		services:  services,
		txManager: txManager,
		audit:     rec,
	}
}

// Generate recomputes the invoice of a service record and stores it.
// Calling it again with unchanged parts and charge yields the same invoice.
func (s *Service) Generate(ctx context.Context, serviceID int64, charge types.Money) (*Invoice, error) {
	if err := types.CheckPrice("serviceCharge", charge); err != nil {
		return nil, err
	}

	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.services.Exists(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("check service record: %w", err)
		}
		if !ok {
			return apperror.NewNotFound(apperror.EntityServiceRecord, serviceID)
		}

		lines, err := s.lines.ListLines(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("list part lines: %w", err)
		}

		inv = Compose(serviceID, charge, lines)
		if err := s.repo.Upsert(ctx, inv); err != nil {
			return fmt.Errorf("upsert invoice: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityInvoice,
			EntityID:   inv.InvoiceID,
			Action:     audit.ActionInvoiceGenerated,
			UserID:     audit.Actor(ctx),
			Changes: map[string]any{
				"serviceCharge":   inv.ServiceCharge.String(),
				"partsTotalPrice": inv.PartsTotalPrice.String(),
				"totalPrice":      inv.TotalPrice.String(),
			},
		})
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "invoice generated",
		"invoice_id", inv.InvoiceID,
		"service_id", serviceID,
		"total", inv.TotalPrice.String(),
	)
	return inv, nil
}

// Get returns the invoice as last generated. Parts changed since then show up
// only after the next Generate.
func (s *Service) Get(ctx context.Context, serviceID int64) (*Invoice, error) {
	var inv *Invoice
	err := tx.ReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		found, err := s.repo.GetByServiceID(ctx, serviceID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound(apperror.EntityInvoice, InvoiceID(serviceID))
			}
			return err
		}
		inv = found
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return inv, nil
}
