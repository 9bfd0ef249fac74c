package handlers

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"

	"serviceshop/internal/core/types"
)

type priceBody struct {
	Price    types.Money  `json:"price" binding:"money"`
	Optional *types.Money `json:"optional" binding:"omitempty,money"`
	Name     string       `json:"name" binding:"required"`
}

func TestMoneyRule(t *testing.T) {
	RegisterValidations()
	RegisterValidations()

	opt := types.MustMoney("0.10")
	tests := []struct {
		name   string
		body   priceBody
		fields map[string]string
	}{
		{"valid", priceBody{Price: types.MustMoney("12.50"), Optional: &opt, Name: "x"}, nil},
		{"zero and nil optional", priceBody{Name: "x"}, nil},
		{"negative", priceBody{Price: types.MustMoney("-1"), Name: "x"}, map[string]string{"price": "money"}},
		{"sub-cent optional", priceBody{Optional: ptr(types.MustMoney("0.001")), Name: "x"}, map[string]string{"optional": "money"}},
		{"missing name", priceBody{}, map[string]string{"name": "required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.body)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldErrors(err))
		})
	}
}

func TestFieldErrors_NotValidation(t *testing.T) {
	assert.Nil(t, fieldErrors(errors.New("unexpected EOF")))
}

func ptr[T any](v T) *T { return &v }
