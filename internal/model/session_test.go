package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempOrderValueEmitsEmptyItemsArray(t *testing.T) {
	value, err := TempOrder{}.Value()
	require.NoError(t, err)

	// A zero draft must store items as [], not null: the abandoned-cart
	// query takes jsonb_array_length of it.
	assert.Contains(t, string(value.([]byte)), `"items":[]`)
	assert.NotContains(t, string(value.([]byte)), `"items":null`)
}

func TestTempOrderScanRoundTrip(t *testing.T) {
	original := TempOrder{
		Items: []CartItem{{ProductID: "p1", ProductName: "Bazin Riche", Quantity: 2, UnitPrice: 15000}},
		Total: 30000,
	}
	value, err := original.Value()
	require.NoError(t, err)

	var decoded TempOrder
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, original.Items, decoded.Items)
	assert.Equal(t, original.Total, decoded.Total)
	assert.True(t, decoded.HasItems())
}

func TestHistoryAppendDropsOldest(t *testing.T) {
	var h History
	for i := 0; i < HistoryLimit+5; i++ {
		h = h.Append("customer", "message")
	}
	assert.Len(t, h, HistoryLimit)
}
