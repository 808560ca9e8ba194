package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

func TestNewDeductionRequest_Validation(t *testing.T) {
	cases := []struct {
		name      string
		requestID string
		itemID    string
		quantity  int
		wantErr   error
	}{
		{name: "zero quantity", requestID: "O1", itemID: "SKU1", quantity: 0, wantErr: dominv.ErrInvalidQuantity},
		{name: "negative quantity", requestID: "O1", itemID: "SKU1", quantity: -2, wantErr: dominv.ErrInvalidQuantity},
		{name: "blank request id", requestID: "  ", itemID: "SKU1", quantity: 1, wantErr: dominv.ErrMissingRequestID},
		{name: "missing item", requestID: "O1", itemID: "", quantity: 1, wantErr: dominv.ErrMissingItemID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dominv.NewDeductionRequest(tc.requestID, tc.itemID, "WH1", tc.quantity)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewDeductionRequest_AllowsEmptyWarehouse(t *testing.T) {
	req, err := dominv.NewDeductionRequest("O2", "SKU1", "", 5)
	require.NoError(t, err)
	assert.Equal(t, dominv.NewKey("", "SKU1"), req.Key())

	routed := req.WithWarehouse("WH2")
	assert.Equal(t, "WH2:SKU1", routed.Key().String())
	assert.Empty(t, req.WarehouseID, "original request must stay untouched")
}

func TestParseKey(t *testing.T) {
	key, err := dominv.ParseKey(" WH1:SKU1 ")
	require.NoError(t, err)
	assert.Equal(t, dominv.NewKey("WH1", "SKU1"), key)

	for _, bad := range []string{"", "WH1", ":SKU1", "WH1:"} {
		_, err := dominv.ParseKey(bad)
		assert.ErrorIs(t, err, dominv.ErrInvalidKey, bad)
	}
}

func TestItemDeduct(t *testing.T) {
	item, err := dominv.NewItem(dominv.NewKey("WH1", "SKU1"), 5)
	require.NoError(t, err)

	require.NoError(t, item.Deduct(3))
	assert.Equal(t, 2, item.Quantity)

	assert.ErrorIs(t, item.Deduct(3), dominv.ErrInsufficientStock)
	assert.Equal(t, 2, item.Quantity)

	assert.ErrorIs(t, item.Deduct(0), dominv.ErrInvalidQuantity)

	_, err = dominv.NewItem(dominv.NewKey("WH1", "SKU1"), -1)
	assert.ErrorIs(t, err, dominv.ErrInvalidQuantity)
}
