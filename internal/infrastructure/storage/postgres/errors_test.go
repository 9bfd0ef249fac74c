package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"no rows", pgx.ErrNoRows, apperror.CodeNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperror.CodeNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "items_name_brand_key"}, apperror.CodeDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, apperror.CodeConflict},
		{"stock check", &pgconn.PgError{Code: "23514", ConstraintName: "stock_lots_available_qty_check"}, apperror.CodeInsufficientStock},
		{"other check", &pgconn.PgError{Code: "23514", ConstraintName: "items_restock_level_check"}, apperror.CodeValidation},
		{"serialization", &pgconn.PgError{Code: "40001"}, apperror.CodeConcurrentModification},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, apperror.CodeConcurrentModification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapError(tt.err, apperror.EntityStock, int64(3))
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil, "x", 1))

	notFound := apperror.NewNotFound(apperror.EntityItem, 1)
	assert.Same(t, notFound, MapError(notFound, apperror.EntityStock, 2))

	plain := errors.New("connection reset")
	err := MapError(plain, apperror.EntityItem, 5)
	assert.ErrorIs(t, err, plain)
	assert.False(t, apperror.IsAppError(err))
}
