package item

import (
	"context"
	"fmt"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/domain"
	"serviceshop/pkg/logger"
)

// Service provides business logic for the item catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	policy    *RestockPolicy
	hooks     *domain.HookRegistry[*Item]
}

// NewService creates a new item service.
func NewService(repo Repository, txManager tx.Manager, policy *RestockPolicy) *Service {
	svc := &Service{
		repo:      repo,
		txManager: txManager,
		policy:    policy,
		hooks:     domain.NewHookRegistry[*Item](),
	}

	svc.hooks.OnBeforeCreate(svc.checkUnique)
	svc.hooks.OnBeforeUpdate(svc.checkUnique)

	return svc
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Item] {
	return s.hooks
}

// checkUnique rejects a second item with the same name and brand.
func (s *Service) checkUnique(ctx context.Context, it *Item) error {
	existing, err := s.repo.FindByNameBrand(ctx, it.Name, it.Brand)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ItemID != it.ItemID {
		return apperror.NewDuplicate(apperror.EntityItem, "name", it.Name).
			WithDetail("brand", it.Brand)
	}
	return nil
}

// Create adds an item to the catalog.
func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeCreate, it); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, it); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, it); err != nil {
		logger.Warn(ctx, "after-create hook failed", "item_id", it.ItemID, "error", err)
	}

	logger.Info(ctx, "item created", "item_id", it.ItemID, "name", it.Name)
	return nil
}

// GetByID returns a single item.
func (s *Service) GetByID(ctx context.Context, itemID int64) (*Item, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return it, nil
}

// Update changes descriptive fields of an item.
func (s *Service) Update(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, it.ItemID); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, it); err != nil {
			return err
		}
		return s.repo.Update(ctx, it)
	})
	return apperror.Wrap(err)
}

// Delete removes an item that nothing references.
func (s *Service) Delete(ctx context.Context, itemID int64) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.GetByID(ctx, itemID)
		if err != nil {
			return err
		}

		refs, err := s.repo.CountReferences(ctx, itemID)
		if err != nil {
			return fmt.Errorf("count item references: %w", err)
		}
		if refs > 0 {
			return apperror.NewConflict("item is referenced by stock or service records").
				WithDetail("itemId", itemID).
				WithDetail("references", refs)
		}

		if err := s.repo.Delete(ctx, itemID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, it)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "item deleted", "item_id", itemID)
	return nil
}

// List returns a page of items.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error) {
	lf := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}
	lf.Normalize()
	filter.Limit, filter.Offset = lf.Limit, lf.Offset

	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Item]{}, apperror.Wrap(err)
	}
	return res, nil
}

// LowStock returns items the restock policy flags.
func (s *Service) LowStock(ctx context.Context) ([]*WithAvailability, error) {
	all, err := s.repo.ListWithAvailability(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	out := make([]*WithAvailability, 0)
	for _, it := range all {
		flag, err := s.policy.NeedsRestock(it)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
		if flag {
			out = append(out, it)
		}
	}
	return out, nil
}
