package purchase

import (
	"context"
	"fmt"
	"strconv"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/pkg/logger"
)

// Service records purchases and keeps their lots in step.
type Service struct {
	repo      Repository
	lots      stock.Repository
	items     ItemChecker
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new purchase service.
func NewService(repo Repository, lots stock.Repository, items ItemChecker, txManager tx.Manager, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		lots:      lots,
		items:     items,
		txManager: txManager,
		audit:     rec,
	}
}

// Record inserts a purchase and its lot atomically.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Receipt, error) {
	p := &Purchase{
		ItemID:       req.ItemID,
		PurchaseDate: req.PurchaseDate,
		Quantity:     req.Quantity,
		BuyingPrice:  req.BuyingPrice,
		Supplier:     req.Supplier,
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := types.CheckPrice("sellingPrice", req.SellingPrice); err != nil {
		return nil, err
	}

	var lot *stock.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.items.Exists(ctx, p.ItemID)
		if err != nil {
			return fmt.Errorf("check item: %w", err)
		}
		if !ok {
			return apperror.NewNotFound(apperror.EntityItem, p.ItemID)
		}

		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}

		purchaseID := p.PurchaseID
		lot = &stock.Lot{
			ItemID:       p.ItemID,
			PurchaseID:   &purchaseID,
			AvailableQty: p.Quantity,
			BuyingPrice:  p.BuyingPrice,
			SellingPrice: req.SellingPrice,
			PurchaseDate: p.PurchaseDate,
		}
		if err := s.lots.CreateLot(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityPurchase,
			EntityID:   strconv.FormatInt(p.PurchaseID, 10),
			Action:     audit.ActionPurchaseRecorded,
			UserID:     audit.Actor(ctx),
			Changes: map[string]any{
				"itemId":   p.ItemID,
				"stockId":  lot.StockID,
				"quantity": p.Quantity,
			},
		})
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "purchase recorded",
		"purchase_id", p.PurchaseID,
		"item_id", p.ItemID,
		"stock_id", lot.StockID,
		"quantity", p.Quantity,
	)

	return &Receipt{Purchase: p, Lot: lot}, nil
}

// Get returns a purchase and its lot.
func (s *Service) Get(ctx context.Context, purchaseID int64) (*Receipt, error) {
	var receipt *Receipt
	err := tx.ReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, purchaseID)
		if err != nil {
			return err
		}
		lot, err := s.lots.GetLotByPurchase(ctx, purchaseID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		receipt = &Receipt{Purchase: p, Lot: lot}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return receipt, nil
}

// List returns a page of purchases, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Purchase], error) {
	lf := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}
	lf.Normalize()
	filter.Limit, filter.Offset = lf.Limit, lf.Offset

	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Purchase]{}, apperror.Wrap(err)
	}
	return res, nil
}

// Update changes a purchase and applies the quantity delta to its lot.
// Lowering the quantity below what was already consumed fails with InsufficientStock.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Receipt, error) {
	var receipt *Receipt
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, req.PurchaseID)
		if err != nil {
			return err
		}
		lot, err := s.lots.GetLotByPurchaseForUpdate(ctx, req.PurchaseID)
		if err != nil {
			return err
		}

		oldQty := p.Quantity
		if req.PurchaseDate != nil {
			p.PurchaseDate = *req.PurchaseDate
			lot.PurchaseDate = *req.PurchaseDate
		}
		if req.Quantity != nil {
			p.Quantity = *req.Quantity
		}
		if req.BuyingPrice != nil {
			p.BuyingPrice = *req.BuyingPrice
			lot.BuyingPrice = *req.BuyingPrice
		}
		if req.SellingPrice != nil {
			lot.SellingPrice = *req.SellingPrice
		}
		if req.Supplier != nil {
			p.Supplier = *req.Supplier
		}

		if err := p.Validate(ctx); err != nil {
			return err
		}
		if err := lot.Validate(); err != nil {
			return err
		}

		switch delta := p.Quantity - oldQty; {
		case delta > 0:
			if lot.AvailableQty, err = s.lots.Increment(ctx, lot.StockID, delta); err != nil {
				return err
			}
		case delta < 0:
			if lot.AvailableQty, err = s.lots.Decrement(ctx, lot.StockID, -delta); err != nil {
				return err
			}
		}

		if err := s.lots.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("update lot: %w", err)
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}

		receipt = &Receipt{Purchase: p, Lot: lot}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityPurchase,
			EntityID:   strconv.FormatInt(p.PurchaseID, 10),
			Action:     audit.ActionPurchaseUpdated,
			UserID:     audit.Actor(ctx),
			Changes:    map[string]any{"quantityFrom": oldQty, "quantityTo": p.Quantity},
		})
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "purchase updated", "purchase_id", req.PurchaseID)
	return receipt, nil
}

// Delete removes a purchase and its lot. It fails with Conflict once the lot was consumed.
func (s *Service) Delete(ctx context.Context, purchaseID int64) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}

		lot, err := s.lots.GetLotByPurchaseForUpdate(ctx, purchaseID)
		switch {
		case apperror.IsNotFound(err):
			lot = nil
		case err != nil:
			return err
		}

		if lot != nil {
			consumed, err := s.lots.HasConsumption(ctx, lot.StockID)
			if err != nil {
				return fmt.Errorf("check consumption: %w", err)
			}
			if consumed || lot.AvailableQty != p.Quantity {
				return apperror.NewConflict("purchase stock has already been consumed").
					WithDetail("purchaseId", purchaseID).
					WithDetail("stockId", lot.StockID)
			}
			if err := s.lots.DeleteLot(ctx, lot.StockID); err != nil {
				return fmt.Errorf("delete lot: %w", err)
			}
		}

		if err := s.repo.Delete(ctx, purchaseID); err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityPurchase,
			EntityID:   strconv.FormatInt(purchaseID, 10),
			Action:     audit.ActionPurchaseDeleted,
			UserID:     audit.Actor(ctx),
			Changes:    map[string]any{"itemId": p.ItemID, "quantity": p.Quantity},
		})
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "purchase deleted", "purchase_id", purchaseID)
	return nil
}
