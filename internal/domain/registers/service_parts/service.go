package service_parts

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/pkg/logger"
)

var tracer = otel.Tracer("serviceshop/service_parts")

// Service keeps part usages and lot quantities in step.
type Service struct {
	repo      Repository
	lots      stock.Repository
	services  ServiceChecker
	txManager tx.Manager
	audit     audit.Recorder
	retries   int
}

// NewService creates a new service parts register service.
func NewService(
	repo Repository,
	lots stock.Repository,
	services ServiceChecker,
	txManager tx.Manager,
	rec audit.Recorder,
	retries int,
) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		lots:      lots,
		services:  services,
		txManager: txManager,
		audit:     rec,
		retries:   retries,
	}
}

// Attach consumes the named lots for a service record.
// Parts already attached are merged by summing quantities. Any missing lot or
// shortage aborts the whole list.
func (s *Service) Attach(ctx context.Context, serviceID int64, parts []Part) ([]*Usage, error) {
	merged, err := Merge(parts)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "service_parts.Attach",
		trace.WithAttributes(
			attribute.Int64("service.id", serviceID),
			attribute.Int("parts", len(merged)),
		))
	defer span.End()

	var usages []*Usage
	err = s.run(ctx, "attach_parts", func(ctx context.Context) error {
		if err := s.requireService(ctx, serviceID); err != nil {
			return err
		}
		if err := s.attach(ctx, serviceID, merged); err != nil {
			return err
		}
		usages, err = s.repo.ListUsages(ctx, serviceID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "service parts attached", "service_id", serviceID, "parts", len(merged))
	return usages, nil
}

// Add attaches parts incrementally on top of what the service already uses.
func (s *Service) Add(ctx context.Context, serviceID int64, parts []Part) ([]*Usage, error) {
	return s.Attach(ctx, serviceID, parts)
}

// Replace restores every attached lot and attaches parts instead, in one transaction.
func (s *Service) Replace(ctx context.Context, serviceID int64, parts []Part) ([]*Usage, error) {
	merged, err := Merge(parts)
	if err != nil {
		return nil, err
	}

	var usages []*Usage
	err = s.run(ctx, "replace_parts", func(ctx context.Context) error {
		if err := s.requireService(ctx, serviceID); err != nil {
			return err
		}

		current, err := s.repo.ListUsagesForUpdate(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("list usages: %w", err)
		}

		// Lock old and new lots together so the lock order stays by stock id.
		ids := make([]int64, 0, len(current)+len(merged))
		for _, u := range current {
			ids = append(ids, u.StockID)
		}
		for _, p := range merged {
			ids = append(ids, p.StockID)
		}
		if _, err := s.lots.LockLots(ctx, uniqueSorted(ids)); err != nil {
			return fmt.Errorf("lock lots: %w", err)
		}

		if err := s.restore(ctx, serviceID, current); err != nil {
			return err
		}
		if err := s.attach(ctx, serviceID, merged); err != nil {
			return err
		}
		usages, err = s.repo.ListUsages(ctx, serviceID)
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "service parts replaced", "service_id", serviceID, "parts", len(merged))
	return usages, nil
}

// Restore gives every attached unit back to its lot and deletes the usages.
func (s *Service) Restore(ctx context.Context, serviceID int64) error {
	err := s.run(ctx, "restore_parts", func(ctx context.Context) error {
		if err := s.requireService(ctx, serviceID); err != nil {
			return err
		}
		current, err := s.repo.ListUsagesForUpdate(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("list usages: %w", err)
		}
		ids := make([]int64, 0, len(current))
		for _, u := range current {
			ids = append(ids, u.StockID)
		}
		if _, err := s.lots.LockLots(ctx, uniqueSorted(ids)); err != nil {
			return fmt.Errorf("lock lots: %w", err)
		}
		return s.restore(ctx, serviceID, current)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "service parts restored", "service_id", serviceID)
	return nil
}

// Usages returns the parts a service currently uses.
func (s *Service) Usages(ctx context.Context, serviceID int64) ([]*Usage, error) {
	usages, err := s.repo.ListUsages(ctx, serviceID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return usages, nil
}

func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return domain.RetryOnConflict(ctx, s.retries, op, func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, fn)
	})
}

func (s *Service) requireService(ctx context.Context, serviceID int64) error {
	ok, err := s.services.Exists(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("check service record %d: %w", serviceID, err)
	}
	if !ok {
		return apperror.NewNotFound(apperror.EntityServiceRecord, serviceID)
	}
	return nil
}

// attach expects merged parts, ordered by stock id.
func (s *Service) attach(ctx context.Context, serviceID int64, parts []Part) error {
	if len(parts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.StockID)
	}
	locked, err := s.lots.LockLots(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock lots: %w", err)
	}
	byID := make(map[int64]*stock.Lot, len(locked))
	for _, l := range locked {
		byID[l.StockID] = l
	}

	// Validate the whole list before touching any lot.
	for _, p := range parts {
		lot, ok := byID[p.StockID]
		if !ok {
			return apperror.NewNotFound(apperror.EntityStock, p.StockID)
		}
		if lot.AvailableQty < p.Quantity {
			return apperror.NewInsufficientStock(apperror.EntityStock, p.StockID, p.Quantity, lot.AvailableQty)
		}
	}

	for _, p := range parts {
		if _, err := s.lots.Decrement(ctx, p.StockID, p.Quantity); err != nil {
			return err
		}
		if _, err := s.repo.AddUsage(ctx, serviceID, p.StockID, p.Quantity); err != nil {
			return fmt.Errorf("add usage: %w", err)
		}
	}

	return s.audit.Record(ctx, audit.Entry{
		EntityType: apperror.EntityServiceRecord,
		EntityID:   strconv.FormatInt(serviceID, 10),
		Action:     audit.ActionPartsAttached,
		UserID:     audit.Actor(ctx),
		Changes:    map[string]any{"parts": parts},
	})
}

func (s *Service) restore(ctx context.Context, serviceID int64, usages []*Usage) error {
	if len(usages) == 0 {
		return nil
	}

	for _, u := range usages {
		if _, err := s.lots.Increment(ctx, u.StockID, u.QuantityUsed); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUsages(ctx, serviceID); err != nil {
		return fmt.Errorf("delete usages: %w", err)
	}

	restored := make([]Part, 0, len(usages))
	for _, u := range usages {
		restored = append(restored, Part{StockID: u.StockID, Quantity: u.QuantityUsed})
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityType: apperror.EntityServiceRecord,
		EntityID:   strconv.FormatInt(serviceID, 10),
		Action:     audit.ActionPartsRestored,
		UserID:     audit.Actor(ctx),
		Changes:    map[string]any{"parts": restored},
	})
}

func uniqueSorted(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return out
}
