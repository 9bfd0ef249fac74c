package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// ErrBatchOutsideTx is returned when a row batch is sent without a transaction.
// A batch only rolls back as a unit inside one.
var ErrBatchOutsideTx = errors.New("row batch requires a transaction")

// RowBatch collects statements that each return one row (INSERT ... RETURNING)
// so they travel to the server in a single round-trip.
type RowBatch struct {
	b pgx.Batch
}

func (rb *RowBatch) Queue(q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build batch statement %d: %w", rb.Len(), err)
	}
	rb.b.Queue(sql, args...)
	return nil
}

func (rb *RowBatch) Len() int { return rb.b.Len() }

// SendRows sends rb on the transaction of ctx and hands row i to scan.
// The first scan error stops the walk.
func (m *TxManager) SendRows(ctx context.Context, rb *RowBatch, scan func(i int, row pgx.Row) error) error {
	t := m.GetTx(ctx)
	if t == nil {
		return ErrBatchOutsideTx
	}
	if rb.Len() == 0 {
		return nil
	}

	res := t.SendBatch(ctx, &rb.b)
	for i := range rb.Len() {
		if err := scan(i, res.QueryRow()); err != nil {
			_ = res.Close()
			return fmt.Errorf("batch row %d: %w", i, err)
		}
	}
	return res.Close()
}
