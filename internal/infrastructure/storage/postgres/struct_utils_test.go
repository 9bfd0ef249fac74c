package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stamped struct {
	CreatedAt time.Time `db:"created_at"`
}

type lotRow struct {
	stamped
	StockID int64  `db:"stock_id"`
	Name    string `db:"name"`
	Lines   []int  `db:"-"`
	hidden  string `db:"hidden"`
	Plain   string
}

func TestColumns_WalksEmbedded(t *testing.T) {
	cols := Columns[lotRow]()
	assert.Equal(t, []string{"created_at", "stock_id", "name"}, cols)

	cols[0] = "changed"
	assert.Equal(t, "created_at", Columns[lotRow]()[0])
	assert.Equal(t, Columns[lotRow](), Columns[*lotRow]())
}

func TestValues(t *testing.T) {
	now := time.Now().UTC()
	row := &lotRow{stamped: stamped{CreatedAt: now}, StockID: 7, Name: "lot", hidden: "x", Plain: "y"}

	assert.Equal(t, map[string]any{
		"created_at": now,
		"stock_id":   int64(7),
		"name":       "lot",
	}, Values(row))

	assert.Equal(t, map[string]any{"name": "lot"}, Values(*row, "stock_id", "created_at"))
}

func TestValues_NotAStruct(t *testing.T) {
	var nilRow *lotRow
	assert.Nil(t, Values(nilRow))
	assert.Nil(t, Values(42))
}
