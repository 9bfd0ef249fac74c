package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"serviceshop/internal/core/tx"
	"serviceshop/pkg/logger"
)

var tracer = otel.Tracer("serviceshop/tx")

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// TxOptions configures one outermost transaction.
type TxOptions struct {
	IsolationLevel   pgx.TxIsoLevel
	AccessMode       pgx.TxAccessMode
	StatementTimeout time.Duration
}

// DefaultTxOptions is used by ledger mutations. READ COMMITTED is enough
// because lots are guarded by row locks and conditional updates.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// snapshotTxOptions gives multi-statement reports one consistent view.
func snapshotTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: pgx.RepeatableRead,
		AccessMode:     pgx.ReadOnly,
	}
}

// TxManager keeps the active pgx.Tx in the context so repositories pick it
// up through GetQuerier.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewTxManager creates a new transaction manager.
// A zero statementTimeout keeps the DefaultTxOptions value.
func NewTxManager(pool *Pool, statementTimeout time.Duration) *TxManager {
	if statementTimeout <= 0 {
		statementTimeout = DefaultTxOptions().StatementTimeout
	}
	return &TxManager{pool: pool.Pool, statementTimeout: statementTimeout}
}

type txKey struct{}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := DefaultTxOptions()
	opts.StatementTimeout = m.statementTimeout
	return m.run(ctx, opts, fn)
}

// ReadOnly implements tx.ReadOnlyManager with a REPEATABLE READ snapshot.
// Inside an open transaction fn simply joins it.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := snapshotTxOptions()
	opts.StatementTimeout = m.statementTimeout
	return m.run(ctx, opts, fn)
}

func (m *TxManager) run(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) (err error) {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "ledger.tx",
		trace.WithAttributes(
			attribute.String("db.tx.isolation", string(opts.IsolationLevel)),
			attribute.String("db.tx.access", string(opts.AccessMode)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transaction rolled back")
		}
		span.End()
	}()

	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return MapError(err, "transaction", "begin")
	}

	if opts.StatementTimeout > 0 {
		_, err = pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			rollback(ctx, pgTx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	txCtx := tx.MarkActive(context.WithValue(ctx, txKey{}, pgTx))

	defer func() {
		if r := recover(); r != nil {
			rollback(ctx, pgTx)
			panic(r)
		}
	}()

	if err = fn(txCtx); err != nil {
		rollback(ctx, pgTx)
		return err
	}

	// Serialization failures can surface at commit time as well.
	if err = pgTx.Commit(ctx); err != nil {
		return MapError(err, "transaction", "commit")
	}
	return nil
}

// rollback uses a fresh context so a cancelled request still releases its row locks.
func rollback(ctx context.Context, pgTx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := pgTx.Rollback(rbCtx); err != nil {
		logger.Error(ctx, "rollback failed", "error", err)
	}
}

// GetTx returns the transaction carried by ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) pgx.Tx {
	if t, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return t
	}
	return nil
}

// Querier is the statement surface shared by pgx.Tx and pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t
	}
	return m.pool
}
