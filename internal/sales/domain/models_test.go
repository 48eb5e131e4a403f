package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevenueCents(t *testing.T) {
	tests := []struct {
		name string
		item OrderItem
		want int64
	}{
		{
			name: "ten percent discount",
			item: OrderItem{UnitPriceCents: 18000, Quantity: 2, DiscountBps: 1000},
			want: 32400,
		},
		{
			name: "no discount",
			item: OrderItem{UnitPriceCents: 999, Quantity: 3, DiscountBps: 0},
			want: 2997,
		},
		{
			name: "full discount",
			item: OrderItem{UnitPriceCents: 5000, Quantity: 1, DiscountBps: 10000},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.RevenueCents())
		})
	}
}
