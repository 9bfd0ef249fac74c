package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain/documents/service_record"
	"serviceshop/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ service_record.Repository = (*ServiceRecordRepo)(nil)

// ServiceRecordRepo implements service_record.Repository.
type ServiceRecordRepo struct {
	*BaseDocumentRepo[service_record.ServiceRecord]
}

// NewServiceRecordRepo creates a new service record repository.
func NewServiceRecordRepo(txManager *postgres.TxManager) *ServiceRecordRepo {
	return &ServiceRecordRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[service_record.ServiceRecord](
			txManager, "service_records", "service_id", apperror.EntityServiceRecord,
		),
	}
}

// Create inserts a service record.
func (r *ServiceRecordRepo) Create(ctx context.Context, rec *service_record.ServiceRecord) error {
	sql, args, err := r.Builder().Insert(r.tableName).
		Columns("vehicle_id", "technician_id", "description", "service_date").
		Values(rec.VehicleID, rec.TechnicianID, rec.Description, rec.ServiceDate).
		Suffix("RETURNING service_id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&rec.ServiceID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, apperror.EntityServiceRecord, rec.VehicleID)
	}
	return nil
}

// GetByID returns a service record.
func (r *ServiceRecordRepo) GetByID(ctx context.Context, serviceID int64) (*service_record.ServiceRecord, error) {
	return r.GetByKey(ctx, serviceID)
}

// GetForUpdate returns a service record row-locked.
func (r *ServiceRecordRepo) GetForUpdate(ctx context.Context, serviceID int64) (*service_record.ServiceRecord, error) {
	return r.GetByKeyForUpdate(ctx, serviceID)
}

// Update rewrites the header of a service record.
func (r *ServiceRecordRepo) Update(ctx context.Context, rec *service_record.ServiceRecord) error {
	sql, args, err := r.Builder().Update(r.tableName).
		Set("vehicle_id", rec.VehicleID).
		Set("technician_id", rec.TechnicianID).
		Set("description", rec.Description).
		Set("service_date", rec.ServiceDate).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"service_id": rec.ServiceID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&rec.UpdatedAt); err != nil {
		return postgres.MapError(err, apperror.EntityServiceRecord, rec.ServiceID)
	}
	return nil
}

// Delete removes a service record; the invoices FK cascades.
// Usages must be restored first, their FK is restrictive.
func (r *ServiceRecordRepo) Delete(ctx context.Context, serviceID int64) error {
	return r.DeleteByKey(ctx, serviceID)
}
