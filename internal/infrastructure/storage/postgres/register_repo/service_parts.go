package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain/registers/service_parts"
	"serviceshop/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ service_parts.Repository = (*ServicePartsRepo)(nil)

// ServicePartsRepo implements service_parts.Repository.
type ServicePartsRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	usageCols []string
}

// NewServicePartsRepo creates a new service parts repository.
func NewServicePartsRepo(txManager *postgres.TxManager) *ServicePartsRepo {
	return &ServicePartsRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		usageCols: postgres.Columns[service_parts.Usage](),
	}
}

func (r *ServicePartsRepo) usagesQuery(serviceID int64, forUpdate bool) squirrel.SelectBuilder {
	q := r.builder.Select(r.usageCols...).
		From(usagesTable).
		Where(squirrel.Eq{"service_id": serviceID}).
		OrderBy("stock_id")
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *ServicePartsRepo) listUsages(ctx context.Context, serviceID int64, forUpdate bool) ([]*service_parts.Usage, error) {
	sql, args, err := r.usagesQuery(serviceID, forUpdate).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]*service_parts.Usage, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, apperror.EntityServiceRecord, serviceID)
	}
	return out, nil
}

// ListUsages returns a service's usages.
func (r *ServicePartsRepo) ListUsages(ctx context.Context, serviceID int64) ([]*service_parts.Usage, error) {
	return r.listUsages(ctx, serviceID, false)
}

// ListUsagesForUpdate returns a service's usages row-locked.
func (r *ServicePartsRepo) ListUsagesForUpdate(ctx context.Context, serviceID int64) ([]*service_parts.Usage, error) {
	return r.listUsages(ctx, serviceID, true)
}

// addUsageSQL merges by summing into the existing (service, lot) row.
const addUsageSQL = `
	INSERT INTO service_part_usages (service_id, stock_id, quantity_used)
	VALUES ($1, $2, $3)
	ON CONFLICT (service_id, stock_id) DO UPDATE
	SET quantity_used = service_part_usages.quantity_used + EXCLUDED.quantity_used,
	    updated_at = now()
	RETURNING quantity_used`

// AddUsage inserts or grows a usage row.
func (r *ServicePartsRepo) AddUsage(ctx context.Context, serviceID, stockID, quantity int64) (int64, error) {
	var total int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, addUsageSQL, serviceID, stockID, quantity).Scan(&total)
	if err != nil {
		return 0, postgres.MapError(err, apperror.EntityServiceRecord, serviceID)
	}
	return total, nil
}

// DeleteUsages removes every usage of a service.
func (r *ServicePartsRepo) DeleteUsages(ctx context.Context, serviceID int64) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, "DELETE FROM service_part_usages WHERE service_id = $1", serviceID)
	if err != nil {
		return postgres.MapError(err, apperror.EntityServiceRecord, serviceID)
	}
	return nil
}

func (r *ServicePartsRepo) linesQuery(serviceID int64) squirrel.SelectBuilder {
	return r.builder.Select(
		"u.stock_id", "l.item_id", "i.name AS item_name", "u.quantity_used", "l.selling_price",
	).
		From(usagesTable + " u").
		Join(stockLotsTable + " l ON l.stock_id = u.stock_id").
		Join("items i ON i.item_id = l.item_id").
		Where(squirrel.Eq{"u.service_id": serviceID}).
		OrderBy("u.stock_id").
		Suffix("FOR SHARE OF l")
}

// ListLines returns priced usages of a service.
func (r *ServicePartsRepo) ListLines(ctx context.Context, serviceID int64) ([]service_parts.Line, error) {
	sql, args, err := r.linesQuery(serviceID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]service_parts.Line, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, apperror.EntityServiceRecord, serviceID)
	}
	return out, nil
}
