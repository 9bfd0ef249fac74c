package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/domain"
	"serviceshop/internal/domain/documents/purchase"
	"serviceshop/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ purchase.Repository = (*PurchaseRepo)(nil)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	*BaseDocumentRepo[purchase.Purchase]
}

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[purchase.Purchase](txManager, "purchases", "purchase_id", apperror.EntityPurchase),
	}
}

// Create inserts a purchase.
func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	sql, args, err := r.Builder().Insert(r.tableName).
		Columns("item_id", "purchase_date", "quantity", "buying_price", "supplier").
		Values(p.ItemID, p.PurchaseDate, p.Quantity, p.BuyingPrice, p.Supplier).
		Suffix("RETURNING purchase_id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.PurchaseID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, apperror.EntityPurchase, p.ItemID)
	}
	return nil
}

// GetByID returns a purchase.
func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID int64) (*purchase.Purchase, error) {
	return r.GetByKey(ctx, purchaseID)
}

// GetForUpdate returns a purchase row-locked.
func (r *PurchaseRepo) GetForUpdate(ctx context.Context, purchaseID int64) (*purchase.Purchase, error) {
	return r.GetByKeyForUpdate(ctx, purchaseID)
}

// Update rewrites a purchase.
func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	sql, args, err := r.Builder().Update(r.tableName).
		Set("purchase_date", p.PurchaseDate).
		Set("quantity", p.Quantity).
		Set("buying_price", p.BuyingPrice).
		Set("supplier", p.Supplier).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"purchase_id": p.PurchaseID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.UpdatedAt); err != nil {
		return postgres.MapError(err, apperror.EntityPurchase, p.PurchaseID)
	}
	return nil
}

// Delete removes a purchase.
func (r *PurchaseRepo) Delete(ctx context.Context, purchaseID int64) error {
	return r.DeleteByKey(ctx, purchaseID)
}

func (r *PurchaseRepo) listQuery(filter purchase.ListFilter) squirrel.SelectBuilder {
	q := r.SelectQuery()
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	return q
}

// List returns purchases, newest first.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) (domain.ListResult[*purchase.Purchase], error) {
	result := domain.ListResult[*purchase.Purchase]{
		Items:  make([]*purchase.Purchase, 0),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)
	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := Page(q.OrderBy("purchase_date DESC", "purchase_id DESC"), filter.Limit, filter.Offset).ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list purchases: %w", err)
	}
	return result, nil
}
