// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/catalogs/item"
	"serviceshop/internal/infrastructure/storage/postgres"
)

const (
	itemsTable     = "items"
	stockLotsTable = "stock_lots"
	purchasesTable = "purchases"
)

// Compile-time check.
var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.Columns[item.Item](),
	}
}

func (r *ItemRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).From(itemsTable)
}

// insertQuery builds the INSERT for a new item.
func (r *ItemRepo) insertQuery(it *item.Item) squirrel.InsertBuilder {
	return r.builder.Insert(itemsTable).
		SetMap(postgres.Values(it, "item_id", "created_at", "updated_at")).
		Suffix("RETURNING item_id, created_at, updated_at")
}

// Create inserts a new item.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	sql, args, err := r.insertQuery(it).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&it.ItemID, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return postgres.MapError(err, apperror.EntityItem, it.Name)
	}
	return nil
}

func (r *ItemRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*item.Item, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var it item.Item
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &it, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(apperror.EntityItem, key)
		}
		return nil, postgres.MapError(err, apperror.EntityItem, key)
	}
	return &it, nil
}

// GetByID retrieves an item.
func (r *ItemRepo) GetByID(ctx context.Context, itemID int64) (*item.Item, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"item_id": itemID}), itemID)
}

// FindByNameBrand retrieves an item by its unique (name, brand) pair.
func (r *ItemRepo) FindByNameBrand(ctx context.Context, name, brand string) (*item.Item, error) {
	q := r.baseSelect().
		Where("lower(name) = lower(?)", name).
		Where("lower(brand) = lower(?)", brand).
		Limit(1)
	return r.getOne(ctx, q, name)
}

// Update rewrites the descriptive fields of an item.
func (r *ItemRepo) Update(ctx context.Context, it *item.Item) error {
	q := r.builder.Update(itemsTable).
		Set("name", it.Name).
		Set("description", it.Description).
		Set("category", it.Category).
		Set("brand", it.Brand).
		Set("unit", it.Unit).
		Set("restock_level", it.RestockLevel).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"item_id": it.ItemID}).
		Suffix("RETURNING created_at, updated_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&it.CreatedAt, &it.UpdatedAt); err != nil {
		return postgres.MapError(err, apperror.EntityItem, it.ItemID)
	}
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, itemID int64) error {
	sql, args, err := r.builder.Delete(itemsTable).Where(squirrel.Eq{"item_id": itemID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, apperror.EntityItem, itemID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(apperror.EntityItem, itemID)
	}
	return nil
}

// listQuery applies filters without pagination.
func (r *ItemRepo) listQuery(filter item.Filter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"brand": pattern},
			squirrel.ILike{"description": pattern},
		})
	}
	if filter.Category != "" {
		q = q.Where("lower(category) = lower(?)", filter.Category)
	}
	return q
}

// List retrieves items with filtering and pagination.
func (r *ItemRepo) List(ctx context.Context, filter item.Filter) (domain.ListResult[*item.Item], error) {
	result := domain.ListResult[*item.Item]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Items:  make([]*item.Item, 0),
	}

	q := r.listQuery(filter)

	// Count total (before pagination)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("name ASC", "item_id ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list items: %w", err)
	}
	return result, nil
}

// Exists reports whether the item is present.
func (r *ItemRepo) Exists(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM items WHERE item_id = $1)", itemID,
	).Scan(&exists)
	if err != nil {
		return false, postgres.MapError(err, apperror.EntityItem, itemID)
	}
	return exists, nil
}

// CountReferences counts lots and purchases of the item.
// Service usages reference lots, so they are covered by the lot count.
func (r *ItemRepo) CountReferences(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM stock_lots WHERE item_id = $1)
		     + (SELECT COUNT(*) FROM purchases WHERE item_id = $1)`,
		itemID,
	).Scan(&n)
	if err != nil {
		return 0, postgres.MapError(err, apperror.EntityItem, itemID)
	}
	return n, nil
}

// availabilityQuery sums lots per item.
func (r *ItemRepo) availabilityQuery() squirrel.SelectBuilder {
	cols := make([]string, 0, len(r.selectCols)+1)
	for _, c := range r.selectCols {
		cols = append(cols, "i."+c)
	}
	cols = append(cols, "COALESCE(SUM(l.available_qty), 0) AS available")

	return r.builder.Select(cols...).
		From(itemsTable + " i").
		LeftJoin(stockLotsTable + " l ON l.item_id = i.item_id").
		GroupBy("i.item_id").
		OrderBy("i.item_id")
}

// ListWithAvailability returns every item with its total available quantity.
func (r *ItemRepo) ListWithAvailability(ctx context.Context) ([]*item.WithAvailability, error) {
	sql, args, err := r.availabilityQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]*item.WithAvailability, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return out, nil
}
