// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides key-based reads and deletes shared by document tables.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	keyColumn  string
	entity     string
	selectCols []string
}

// NewBaseDocumentRepo creates a new base document repository.
// Columns are taken from the db tags of T.
func NewBaseDocumentRepo[T any](txManager *postgres.TxManager, tableName, keyColumn, entity string) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		keyColumn:  keyColumn,
		entity:     entity,
		selectCols: postgres.Columns[T](),
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// SelectQuery starts a SELECT over every mapped column.
func (r *BaseDocumentRepo[T]) SelectQuery() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

// byKeyQuery selects one row, optionally row-locked.
func (r *BaseDocumentRepo[T]) byKeyQuery(key int64, forUpdate bool) squirrel.SelectBuilder {
	q := r.SelectQuery().Where(squirrel.Eq{r.keyColumn: key})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

// FindOne runs q and scans a single row.
func (r *BaseDocumentRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out T
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entity, key)
		}
		return nil, postgres.MapError(err, r.entity, key)
	}
	return &out, nil
}

// GetByKey returns the row with the given key.
func (r *BaseDocumentRepo[T]) GetByKey(ctx context.Context, key int64) (*T, error) {
	return r.FindOne(ctx, r.byKeyQuery(key, false), key)
}

// GetByKeyForUpdate returns the row with the given key, row-locked.
func (r *BaseDocumentRepo[T]) GetByKeyForUpdate(ctx context.Context, key int64) (*T, error) {
	return r.FindOne(ctx, r.byKeyQuery(key, true), key)
}

// Exists reports whether a row with the key is present.
func (r *BaseDocumentRepo[T]) Exists(ctx context.Context, key int64) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").From(r.tableName).Where(squirrel.Eq{r.keyColumn: key}).
		Prefix("SELECT EXISTS(").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, postgres.MapError(err, r.entity, key)
	}
	return exists, nil
}

// DeleteByKey removes the row with the given key.
func (r *BaseDocumentRepo[T]) DeleteByKey(ctx context.Context, key int64) error {
	sql, args, err := r.Builder().Delete(r.tableName).Where(squirrel.Eq{r.keyColumn: key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, r.entity, key)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entity, key)
	}
	return nil
}

// Page applies limit and offset.
func Page(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}
