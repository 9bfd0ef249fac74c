package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"serviceshop/internal/core/apperror"
)

func TestHookRegistry_Run(t *testing.T) {
	r := NewHookRegistry[string]()
	var calls []string

	r.OnBeforeCreate(func(_ context.Context, s string) error {
		calls = append(calls, "first:"+s)
		return nil
	})
	r.OnBeforeCreate(func(_ context.Context, s string) error {
		return errors.New("recalled part")
	})
	r.OnBeforeCreate(func(_ context.Context, s string) error {
		calls = append(calls, "never")
		return nil
	})

	err := r.Run(context.Background(), BeforeCreate, "fuse")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, []string{"first:fuse"}, calls)

	assert.NoError(t, r.Run(context.Background(), AfterDelete, "fuse"))
}

func TestHookRegistry_AfterHookErrorsStayInternal(t *testing.T) {
	r := NewHookRegistry[int]()
	boom := errors.New("notify failed")
	r.OnAfterDelete(func(context.Context, int) error { return boom })

	err := r.Run(context.Background(), AfterDelete, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Limit: MaxPageSize + 1, Offset: -3}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset)
}
