package stock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/id"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/core/types"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
	"serviceshop/pkg/logger"
)

var tracer = otel.Tracer("serviceshop/stock")

// Service provides business operations for the stock register.
type Service struct {
	repo      Repository
	items     ItemChecker
	txManager tx.Manager
	audit     audit.Recorder
	retries   int
}

// NewService creates a new stock register service.
// retries bounds how often a release is re-run after a concurrent modification.
func NewService(repo Repository, items ItemChecker, txManager tx.Manager, rec audit.Recorder, retries int) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		items:     items,
		txManager: txManager,
		audit:     rec,
		retries:   retries,
	}
}

func (s *Service) requireItem(ctx context.Context, itemID int64) error {
	ok, err := s.items.Exists(ctx, itemID)
	if err != nil {
		return fmt.Errorf("check item %d: %w", itemID, err)
	}
	if !ok {
		return apperror.NewNotFound(apperror.EntityItem, itemID)
	}
	return nil
}

// Status returns the item's total available quantity and its lots in FIFO order.
func (s *Service) Status(ctx context.Context, itemID int64, includeEmpty bool) (*Status, error) {
	var status *Status
	err := tx.ReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		if err := s.requireItem(ctx, itemID); err != nil {
			return err
		}

		lots, err := s.repo.ListLots(ctx, itemID, includeEmpty)
		if err != nil {
			return fmt.Errorf("list lots: %w", err)
		}
		total, err := s.repo.TotalAvailable(ctx, itemID)
		if err != nil {
			return fmt.Errorf("total available: %w", err)
		}

		status = &Status{ItemID: itemID, TotalAvailable: total, Lots: lots}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return status, nil
}

// ReleaseStock withdraws quantity units of an item, oldest lots first.
// Either every deduction commits or none does. A zero quantity is a no-op.
func (s *Service) ReleaseStock(ctx context.Context, req ReleaseRequest) (*ReleaseResult, error) {
	if err := types.CheckQuantity("quantity", req.Quantity); err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return &ReleaseResult{ItemID: req.ItemID, Deductions: []Deduction{}}, nil
	}
	if req.ReleaseDate.IsZero() {
		req.ReleaseDate = time.Now().UTC()
	}

	ctx, span := tracer.Start(ctx, "stock.ReleaseStock",
		trace.WithAttributes(
			attribute.Int64("item.id", req.ItemID),
			attribute.Int64("quantity", req.Quantity),
		))
	defer span.End()

	var result *ReleaseResult
	err := domain.RetryOnConflict(ctx, s.retries, "release_stock", func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			res, err := s.release(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "stock released",
		"item_id", req.ItemID,
		"quantity", req.Quantity,
		"lots", len(result.Deductions),
		"batch_id", result.BatchID,
	)

	return result, nil
}

func (s *Service) release(ctx context.Context, req ReleaseRequest) (*ReleaseResult, error) {
	if err := s.requireItem(ctx, req.ItemID); err != nil {
		return nil, err
	}

	lots, err := s.repo.ListAvailableLotsForUpdate(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("lock lots: %w", err)
	}

	total := Total(lots)
	if total < req.Quantity {
		return nil, apperror.NewInsufficientStock(apperror.EntityItem, req.ItemID, req.Quantity, total)
	}

	SortFIFO(lots)
	plan := PlanFIFO(lots, req.Quantity)

	result := &ReleaseResult{
		BatchID:    id.New(),
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		Deductions: make([]Deduction, 0, len(plan)),
	}
	releases := make([]*Release, 0, len(plan))

	for _, d := range plan {
		remaining, err := s.repo.Decrement(ctx, d.StockID, d.Deducted)
		if err != nil {
			return nil, err
		}
		result.Deductions = append(result.Deductions, Deduction{
			StockID:   d.StockID,
			Deducted:  d.Deducted,
			Remaining: remaining,
		})
		releases = append(releases, &Release{
			BatchID:     result.BatchID,
			ItemID:      req.ItemID,
			StockID:     d.StockID,
			Quantity:    d.Deducted,
			ReleaseDate: req.ReleaseDate,
		})
	}

	if err := s.repo.CreateReleases(ctx, releases); err != nil {
		return nil, fmt.Errorf("create releases: %w", err)
	}

	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: apperror.EntityItem,
		EntityID:   strconv.FormatInt(req.ItemID, 10),
		Action:     audit.ActionStockReleased,
		UserID:     audit.Actor(ctx),
		Changes: map[string]any{
			"batchId":    result.BatchID.String(),
			"quantity":   req.Quantity,
			"deductions": result.Deductions,
		},
	}); err != nil {
		return nil, fmt.Errorf("audit release: %w", err)
	}

	return result, nil
}

// ReverseRelease puts every unit of a release batch back into its lots and deletes the batch.
func (s *Service) ReverseRelease(ctx context.Context, batchID id.ID) error {
	err := domain.RetryOnConflict(ctx, s.retries, "reverse_release", func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			rows, err := s.repo.GetReleasesByBatch(ctx, batchID)
			if err != nil {
				return fmt.Errorf("get release batch: %w", err)
			}
			if len(rows) == 0 {
				return apperror.NewNotFound(apperror.EntityRelease, batchID.String())
			}

			ids := make([]int64, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.StockID)
			}
			if _, err := s.repo.LockLots(ctx, ids); err != nil {
				return fmt.Errorf("lock lots: %w", err)
			}

			for _, r := range rows {
				if _, err := s.repo.Increment(ctx, r.StockID, r.Quantity); err != nil {
					return err
				}
			}
			if err := s.repo.DeleteReleasesByBatch(ctx, batchID); err != nil {
				return fmt.Errorf("delete release batch: %w", err)
			}

			return s.audit.Record(ctx, audit.Entry{
				EntityType: apperror.EntityItem,
				EntityID:   strconv.FormatInt(rows[0].ItemID, 10),
				Action:     audit.ActionReleaseReversed,
				UserID:     audit.Actor(ctx),
				Changes:    map[string]any{"batchId": batchID.String(), "rows": len(rows)},
			})
		})
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "release reversed", "batch_id", batchID)
	return nil
}

// ListReleases returns the item's release history, newest first.
func (s *Service) ListReleases(ctx context.Context, itemID int64, limit int) ([]*Release, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if err := s.requireItem(ctx, itemID); err != nil {
		return nil, apperror.Wrap(err)
	}
	rows, err := s.repo.ListReleases(ctx, itemID, limit)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return rows, nil
}

// AddLot records a lot that does not come from a purchase.
func (s *Service) AddLot(ctx context.Context, lot *Lot) error {
	lot.PurchaseID = nil
	if lot.PurchaseDate.IsZero() {
		lot.PurchaseDate = time.Now().UTC()
	}
	if err := lot.Validate(); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireItem(ctx, lot.ItemID); err != nil {
			return err
		}
		if err := s.repo.CreateLot(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityStock,
			EntityID:   strconv.FormatInt(lot.StockID, 10),
			Action:     audit.ActionStockAdded,
			UserID:     audit.Actor(ctx),
			Changes:    map[string]any{"itemId": lot.ItemID, "quantity": lot.AvailableQty},
		})
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "stock lot added",
		"stock_id", lot.StockID,
		"item_id", lot.ItemID,
		"quantity", lot.AvailableQty,
	)
	return nil
}

// UpdateSellingPrice changes the price future invoices use for a lot.
func (s *Service) UpdateSellingPrice(ctx context.Context, stockID int64, price types.Money) (*Lot, error) {
	if err := types.CheckPrice("sellingPrice", price); err != nil {
		return nil, err
	}

	var lot *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockLots(ctx, []int64{stockID})
		if err != nil {
			return fmt.Errorf("lock lot: %w", err)
		}
		if len(locked) == 0 {
			return apperror.NewNotFound(apperror.EntityStock, stockID)
		}

		lot = locked[0]
		old := lot.SellingPrice
		lot.SellingPrice = price
		if err := s.repo.UpdateLot(ctx, lot); err != nil {
			return fmt.Errorf("update lot: %w", err)
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityStock,
			EntityID:   strconv.FormatInt(stockID, 10),
			Action:     audit.ActionStockPriced,
			UserID:     audit.Actor(ctx),
			Changes:    map[string]any{"from": old.String(), "to": price.String()},
		})
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return lot, nil
}
