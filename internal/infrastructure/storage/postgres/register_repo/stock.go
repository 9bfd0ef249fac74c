// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/id"
	"serviceshop/internal/domain/registers/stock"
	"serviceshop/internal/infrastructure/storage/postgres"
)

const (
	stockLotsTable = "stock_lots"
	releasesTable  = "releases"
	usagesTable    = "service_part_usages"
)

// Compile-time check.
var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	lotCols    []string
	releaseCol []string
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		lotCols:    postgres.Columns[stock.Lot](),
		releaseCol: postgres.Columns[stock.Release](),
	}
}

func (r *StockRepo) lotSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.lotCols...).From(stockLotsTable)
}

func (r *StockRepo) selectLots(ctx context.Context, q squirrel.SelectBuilder) ([]*stock.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lots := make([]*stock.Lot, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lots, sql, args...); err != nil {
		return nil, postgres.MapError(err, apperror.EntityStock, nil)
	}
	return lots, nil
}

func (r *StockRepo) getLot(ctx context.Context, q squirrel.SelectBuilder, key any) (*stock.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lot stock.Lot
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &lot, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(apperror.EntityStock, key)
		}
		return nil, postgres.MapError(err, apperror.EntityStock, key)
	}
	return &lot, nil
}

// CreateLot inserts a lot.
func (r *StockRepo) CreateLot(ctx context.Context, lot *stock.Lot) error {
	q := r.builder.Insert(stockLotsTable).
		Columns("item_id", "purchase_id", "available_qty", "buying_price", "selling_price", "purchase_date").
		Values(lot.ItemID, lot.PurchaseID, lot.AvailableQty, lot.BuyingPrice, lot.SellingPrice, lot.PurchaseDate).
		Suffix("RETURNING stock_id, created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&lot.StockID, &lot.CreatedAt); err != nil {
		return postgres.MapError(err, apperror.EntityStock, lot.ItemID)
	}
	return nil
}

// GetLot returns a lot by id.
func (r *StockRepo) GetLot(ctx context.Context, stockID int64) (*stock.Lot, error) {
	return r.getLot(ctx, r.lotSelect().Where(squirrel.Eq{"stock_id": stockID}), stockID)
}

func (r *StockRepo) lotByPurchaseQuery(purchaseID int64, forUpdate bool) squirrel.SelectBuilder {
	q := r.lotSelect().Where(squirrel.Eq{"purchase_id": purchaseID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

// GetLotByPurchase returns the lot of a purchase.
func (r *StockRepo) GetLotByPurchase(ctx context.Context, purchaseID int64) (*stock.Lot, error) {
	return r.getLot(ctx, r.lotByPurchaseQuery(purchaseID, false), purchaseID)
}

// GetLotByPurchaseForUpdate returns the lot of a purchase, row-locked.
func (r *StockRepo) GetLotByPurchaseForUpdate(ctx context.Context, purchaseID int64) (*stock.Lot, error) {
	return r.getLot(ctx, r.lotByPurchaseQuery(purchaseID, true), purchaseID)
}

// lockLotsQuery locks rows in stock_id order so concurrent writers queue instead of deadlocking.
func (r *StockRepo) lockLotsQuery(stockIDs []int64) squirrel.SelectBuilder {
	return r.lotSelect().
		Where(squirrel.Eq{"stock_id": stockIDs}).
		OrderBy("stock_id").
		Suffix("FOR UPDATE")
}

// LockLots row-locks the given lots.
func (r *StockRepo) LockLots(ctx context.Context, stockIDs []int64) ([]*stock.Lot, error) {
	if len(stockIDs) == 0 {
		return []*stock.Lot{}, nil
	}
	return r.selectLots(ctx, r.lockLotsQuery(stockIDs))
}

func (r *StockRepo) listLotsQuery(itemID int64, includeEmpty bool) squirrel.SelectBuilder {
	q := r.lotSelect().Where(squirrel.Eq{"item_id": itemID})
	if !includeEmpty {
		q = q.Where(squirrel.Gt{"available_qty": 0})
	}
	return q.OrderBy("purchase_date", "stock_id")
}

// ListLots returns an item's lots in FIFO order.
func (r *StockRepo) ListLots(ctx context.Context, itemID int64, includeEmpty bool) ([]*stock.Lot, error) {
	return r.selectLots(ctx, r.listLotsQuery(itemID, includeEmpty))
}

func (r *StockRepo) availableForUpdateQuery(itemID int64) squirrel.SelectBuilder {
	return r.lotSelect().
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.Gt{"available_qty": 0}).
		OrderBy("stock_id").
		Suffix("FOR UPDATE")
}

// ListAvailableLotsForUpdate row-locks an item's non-empty lots.
// Rows come back in lock order; callers apply stock.SortFIFO.
func (r *StockRepo) ListAvailableLotsForUpdate(ctx context.Context, itemID int64) ([]*stock.Lot, error) {
	return r.selectLots(ctx, r.availableForUpdateQuery(itemID))
}

// TotalAvailable sums an item's lots.
func (r *StockRepo) TotalAvailable(ctx context.Context, itemID int64) (int64, error) {
	var total int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		"SELECT COALESCE(SUM(available_qty), 0) FROM stock_lots WHERE item_id = $1", itemID,
	).Scan(&total)
	if err != nil {
		return 0, postgres.MapError(err, apperror.EntityStock, itemID)
	}
	return total, nil
}

// decrementSQL never lets available_qty go below zero; a miss means the row is short or absent.
const decrementSQL = `
	UPDATE stock_lots SET available_qty = available_qty - $1
	WHERE stock_id = $2 AND available_qty >= $1
	RETURNING available_qty`

// Decrement subtracts n from a lot.
func (r *StockRepo) Decrement(ctx context.Context, stockID, n int64) (int64, error) {
	querier := r.txManager.GetQuerier(ctx)

	var remaining int64
	err := querier.QueryRow(ctx, decrementSQL, n, stockID).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, postgres.MapError(err, apperror.EntityStock, stockID)
	}

	var current int64
	if err := querier.QueryRow(ctx,
		"SELECT available_qty FROM stock_lots WHERE stock_id = $1", stockID,
	).Scan(&current); err != nil {
		return 0, postgres.MapError(err, apperror.EntityStock, stockID)
	}
	return 0, apperror.NewInsufficientStock(apperror.EntityStock, stockID, n, current)
}

// Increment adds n to a lot.
func (r *StockRepo) Increment(ctx context.Context, stockID, n int64) (int64, error) {
	var qty int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		"UPDATE stock_lots SET available_qty = available_qty + $1 WHERE stock_id = $2 RETURNING available_qty",
		n, stockID,
	).Scan(&qty)
	if err != nil {
		return 0, postgres.MapError(err, apperror.EntityStock, stockID)
	}
	return qty, nil
}

// UpdateLot rewrites the mutable columns of a lot.
func (r *StockRepo) UpdateLot(ctx context.Context, lot *stock.Lot) error {
	sql, args, err := r.builder.Update(stockLotsTable).
		Set("available_qty", lot.AvailableQty).
		Set("buying_price", lot.BuyingPrice).
		Set("selling_price", lot.SellingPrice).
		Set("purchase_date", lot.PurchaseDate).
		Where(squirrel.Eq{"stock_id": lot.StockID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, apperror.EntityStock, lot.StockID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(apperror.EntityStock, lot.StockID)
	}
	return nil
}

// DeleteLot removes a lot.
func (r *StockRepo) DeleteLot(ctx context.Context, stockID int64) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, "DELETE FROM stock_lots WHERE stock_id = $1", stockID)
	if err != nil {
		return postgres.MapError(err, apperror.EntityStock, stockID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(apperror.EntityStock, stockID)
	}
	return nil
}

// HasConsumption reports whether releases or service usages reference the lot.
func (r *StockRepo) HasConsumption(ctx context.Context, stockID int64) (bool, error) {
	var used bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM releases WHERE stock_id = $1)
		    OR EXISTS(SELECT 1 FROM service_part_usages WHERE stock_id = $1)`,
		stockID,
	).Scan(&used)
	if err != nil {
		return false, postgres.MapError(err, apperror.EntityStock, stockID)
	}
	return used, nil
}

func (r *StockRepo) releaseInsert(rel *stock.Release) squirrel.InsertBuilder {
	return r.builder.Insert(releasesTable).
		Columns("batch_id", "item_id", "stock_id", "quantity", "release_date").
		Values(rel.BatchID, rel.ItemID, rel.StockID, rel.Quantity, rel.ReleaseDate).
		Suffix("RETURNING release_id, created_at")
}

// CreateReleases inserts the release rows of one request in a single round-trip.
func (r *StockRepo) CreateReleases(ctx context.Context, releases []*stock.Release) error {
	var rb postgres.RowBatch
	for _, rel := range releases {
		if err := rb.Queue(r.releaseInsert(rel)); err != nil {
			return err
		}
	}

	err := r.txManager.SendRows(ctx, &rb, func(i int, row pgx.Row) error {
		return row.Scan(&releases[i].ReleaseID, &releases[i].CreatedAt)
	})
	if err != nil {
		return postgres.MapError(err, apperror.EntityRelease, releases[0].BatchID)
	}
	return nil
}

func (r *StockRepo) selectReleases(ctx context.Context, q squirrel.SelectBuilder) ([]*stock.Release, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]*stock.Release, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.MapError(err, apperror.EntityRelease, nil)
	}
	return out, nil
}

// ListReleases returns an item's releases, newest first.
func (r *StockRepo) ListReleases(ctx context.Context, itemID int64, limit int) ([]*stock.Release, error) {
	q := r.builder.Select(r.releaseCol...).
		From(releasesTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("release_date DESC", "release_id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.selectReleases(ctx, q)
}

// GetReleasesByBatch returns the rows of one release request.
func (r *StockRepo) GetReleasesByBatch(ctx context.Context, batchID id.ID) ([]*stock.Release, error) {
	q := r.builder.Select(r.releaseCol...).
		From(releasesTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("release_id")
	return r.selectReleases(ctx, q)
}

// DeleteReleasesByBatch removes the rows of one release request.
func (r *StockRepo) DeleteReleasesByBatch(ctx context.Context, batchID id.ID) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, "DELETE FROM releases WHERE batch_id = $1", batchID)
	if err != nil {
		return postgres.MapError(err, apperror.EntityRelease, batchID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(apperror.EntityRelease, batchID)
	}
	return nil
}
