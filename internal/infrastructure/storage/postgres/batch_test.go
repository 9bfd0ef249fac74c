package postgres

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowBatch_Queue(t *testing.T) {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	var rb RowBatch
	require.NoError(t, rb.Queue(sb.Insert("releases").Columns("stock_id", "quantity").Values(1, 3).Suffix("RETURNING release_id")))
	require.NoError(t, rb.Queue(sb.Insert("releases").Columns("stock_id", "quantity").Values(2, 4).Suffix("RETURNING release_id")))

	assert.Equal(t, 2, rb.Len())
	assert.Equal(t, "INSERT INTO releases (stock_id,quantity) VALUES ($1,$2) RETURNING release_id", rb.b.QueuedQueries[0].SQL)
	assert.Equal(t, []any{2, 4}, rb.b.QueuedQueries[1].Arguments)

	err := rb.Queue(sb.Insert(""))
	assert.Error(t, err)
	assert.Equal(t, 2, rb.Len())
}

func TestSendRows_RequiresTransaction(t *testing.T) {
	m := &TxManager{}
	var rb RowBatch
	err := m.SendRows(context.Background(), &rb, func(int, pgx.Row) error { return nil })
	assert.ErrorIs(t, err, ErrBatchOutsideTx)
}
