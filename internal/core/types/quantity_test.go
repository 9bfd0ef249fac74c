package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"serviceshop/internal/core/apperror"
)

func TestCheckQuantity(t *testing.T) {
	tests := []struct {
		name     string
		q        int64
		valid    bool
		positive bool
	}{
		{"zero", 0, true, false},
		{"one", 1, true, true},
		{"ceiling", MaxQuantity, true, true},
		{"above ceiling", MaxQuantity + 1, false, false},
		{"max int64", math.MaxInt64, false, false},
		{"negative", -1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuantity("quantity", tt.q)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			}

			err = CheckPositiveQuantity("quantity", tt.q)
			if tt.positive {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			}
		})
	}
}
