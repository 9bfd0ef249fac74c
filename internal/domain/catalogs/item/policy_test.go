package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestockPolicy(t *testing.T) {
	tests := []struct {
		name string
		rule string
		item WithAvailability
		want bool
	}{
		{
			name: "default at level",
			item: WithAvailability{Item: Item{RestockLevel: 3}, Available: 3},
			want: true,
		},
		{
			name: "default above level",
			item: WithAvailability{Item: Item{RestockLevel: 3}, Available: 4},
			want: false,
		},
		{
			name: "category rule",
			rule: `category == "fluids" && available < 10`,
			item: WithAvailability{Item: Item{Category: "fluids"}, Available: 9},
			want: true,
		},
		{
			name: "category rule other category",
			rule: `category == "fluids" && available < 10`,
			item: WithAvailability{Item: Item{Category: "filters"}, Available: 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRestockPolicy(tt.rule)
			require.NoError(t, err)

			got, err := p.NeedsRestock(&tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRestockPolicy_RejectsBadRules(t *testing.T) {
	_, err := NewRestockPolicy("available +")
	assert.Error(t, err)

	_, err = NewRestockPolicy("available + 1")
	assert.Error(t, err)

	_, err = NewRestockPolicy("unknown_var > 1")
	assert.Error(t, err)
}
