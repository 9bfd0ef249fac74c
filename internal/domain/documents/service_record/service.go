package service_record

import (
	"context"
	"fmt"
	"strconv"

	"serviceshop/internal/core/apperror"
	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/core/tx"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/audit"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/pkg/logger"
)

// Service manages the parts-relevant lifecycle of service records.
type Service struct {
	repo      Repository
	parts     *service_parts.Service
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*ServiceRecord]
}

// NewService creates a new service record service.
func NewService(repo Repository, parts *service_parts.Service, txManager tx.Manager, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	svc := &Service{
		repo:      repo,
		parts:     parts,
		txManager: txManager,
		audit:     rec,
		hooks:     domain.NewHookRegistry[*ServiceRecord](),
	}

	svc.hooks.OnBeforeCreate(assignTechnician)

	return svc
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*ServiceRecord] {
	return s.hooks
}

// assignTechnician defaults the technician to the acting technician.
func assignTechnician(ctx context.Context, r *ServiceRecord) error {
	if r.TechnicianID != "" {
		return nil
	}
	if u := appctx.GetUser(ctx); u != nil && u.Role == appctx.RoleTechnician {
		r.TechnicianID = u.UserID
	}
	return nil
}

// Create inserts a service record and attaches its parts in one transaction.
func (s *Service) Create(ctx context.Context, r *ServiceRecord, parts []service_parts.Part) (*Detail, error) {
	if err := r.Validate(ctx); err != nil {
		return nil, err
	}
	if _, err := service_parts.Merge(parts); err != nil {
		return nil, err
	}

	var detail *Detail
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeCreate, r); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return fmt.Errorf("create service record: %w", err)
		}

		usages, err := s.parts.Attach(ctx, r.ServiceID, parts)
		if err != nil {
			return err
		}
		detail = &Detail{Record: r, Parts: usages}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "service record created", "service_id", r.ServiceID, "parts", len(parts))
	return detail, nil
}

// Update changes a service record. A non-nil parts slice replaces every attached part.
func (s *Service) Update(ctx context.Context, r *ServiceRecord, parts *[]service_parts.Part) (*Detail, error) {
	if err := r.Validate(ctx); err != nil {
		return nil, err
	}

	var detail *Detail
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, r.ServiceID)
		if err != nil {
			return err
		}
		if r.TechnicianID == "" {
			r.TechnicianID = current.TechnicianID
		}
		r.CreatedAt = current.CreatedAt

		if err := s.hooks.Run(ctx, domain.BeforeUpdate, r); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update service record: %w", err)
		}

		var usages []*service_parts.Usage
		if parts != nil {
			usages, err = s.parts.Replace(ctx, r.ServiceID, *parts)
		} else {
			usages, err = s.parts.Usages(ctx, r.ServiceID)
		}
		if err != nil {
			return err
		}
		detail = &Detail{Record: r, Parts: usages}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "service record updated", "service_id", r.ServiceID, "parts_replaced", parts != nil)
	return detail, nil
}

// Delete restores every attached lot and removes the record with its invoice.
func (s *Service) Delete(ctx context.Context, serviceID int64) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetForUpdate(ctx, serviceID)
		if err != nil {
			return err
		}
		if err := s.parts.Restore(ctx, serviceID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, serviceID); err != nil {
			return fmt.Errorf("delete service record: %w", err)
		}
		if err := s.hooks.Run(ctx, domain.AfterDelete, r); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: apperror.EntityServiceRecord,
			EntityID:   strconv.FormatInt(serviceID, 10),
			Action:     audit.ActionServiceDeleted,
			UserID:     audit.Actor(ctx),
			Changes:    map[string]any{"vehicleId": r.VehicleID},
		})
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "service record deleted", "service_id", serviceID)
	return nil
}

// Get returns a service record with its parts.
func (s *Service) Get(ctx context.Context, serviceID int64) (*Detail, error) {
	var detail *Detail
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetByID(ctx, serviceID)
		if err != nil {
			return err
		}
		usages, err := s.parts.Usages(ctx, serviceID)
		if err != nil {
			return err
		}
		detail = &Detail{Record: r, Parts: usages}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return detail, nil
}
