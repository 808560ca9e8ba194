package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

func TestRouting_FillsBlankWarehouse(t *testing.T) {
	for _, wh := range []string{"", "   ", "\t"} {
		inner := &countingDeductor{result: dominv.Succeeded("ok")}
		guard := NewRoutingGuard(inner, "WH2")

		guard.Deduct(context.Background(), request("O1", wh, 5))

		require.Equal(t, 1, inner.Calls())
		got := inner.seen[0]
		assert.Equal(t, "WH2", got.WarehouseID)
		assert.Equal(t, "O1", got.RequestID)
		assert.Equal(t, "SKU1", got.ItemID)
		assert.Equal(t, 5, got.Quantity)
	}
}

func TestRouting_KeepsExplicitWarehouse(t *testing.T) {
	inner := &countingDeductor{result: dominv.Failed("nope")}
	guard := NewRoutingGuard(inner, "WH2")

	res := guard.Deduct(context.Background(), request("O1", "WH1", 5))

	assert.Equal(t, dominv.Failed("nope"), res)
	assert.Equal(t, "WH1", inner.seen[0].WarehouseID)
}

func TestRouting_ReportsChoiceToOuterNote(t *testing.T) {
	guard := NewRoutingGuard(&countingDeductor{result: dominv.Succeeded("ok")}, "WH2")

	ctx, note := withRouteNote(context.Background())
	guard.Deduct(ctx, request("O1", "", 1))
	assert.Equal(t, "WH2", note.resolve(""))

	ctx, note = withRouteNote(context.Background())
	guard.Deduct(ctx, request("O2", "WH1", 1))
	assert.Equal(t, "WH1", note.resolve("WH1"))
}
