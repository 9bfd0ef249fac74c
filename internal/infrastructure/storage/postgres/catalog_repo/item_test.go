package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/domain/catalogs/item"
)

func TestItemRepo_ListQuery(t *testing.T) {
	repo := NewItemRepo(nil)

	sql, args, err := repo.listQuery(item.Filter{Search: "oil", Category: "fluids"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT item_id, name, description, category, brand, unit, restock_level, created_at, updated_at "+
			"FROM items WHERE (name ILIKE $1 OR brand ILIKE $2 OR description ILIKE $3) AND lower(category) = lower($4)",
		sql)
	assert.Equal(t, []any{"%oil%", "%oil%", "%oil%", "fluids"}, args)
}

func TestItemRepo_InsertQuery(t *testing.T) {
	repo := NewItemRepo(nil)

	sql, args, err := repo.insertQuery(&item.Item{Name: "Fuse", Unit: "pcs", RestockLevel: 4}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO items (brand,category,description,name,restock_level,unit) VALUES ($1,$2,$3,$4,$5,$6) "+
			"RETURNING item_id, created_at, updated_at",
		sql)
	assert.Equal(t, []any{"", "", "", "Fuse", int64(4), "pcs"}, args)
}

func TestItemRepo_AvailabilityQuery(t *testing.T) {
	repo := NewItemRepo(nil)

	sql, _, err := repo.availabilityQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "COALESCE(SUM(l.available_qty), 0) AS available")
	assert.Contains(t, sql, "LEFT JOIN stock_lots l ON l.item_id = i.item_id")
	assert.Contains(t, sql, "GROUP BY i.item_id")
}
