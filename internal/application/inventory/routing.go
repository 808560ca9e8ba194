package inventory

import (
	"context"
	"strings"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

// RoutingGuard sends requests without a warehouse to the default one.
type RoutingGuard struct {
	inner            dominv.Deductor
	defaultWarehouse string
}

func NewRoutingGuard(inner dominv.Deductor, defaultWarehouse string) *RoutingGuard {
	return &RoutingGuard{inner: inner, defaultWarehouse: defaultWarehouse}
}

func (g *RoutingGuard) Deduct(ctx context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	if strings.TrimSpace(req.WarehouseID) == "" {
		req = req.WithWarehouse(g.defaultWarehouse)
		if note, ok := ctx.Value(routeNoteKey{}).(*routeNote); ok {
			note.warehouseID = req.WarehouseID
		}
	}
	return g.inner.Deduct(ctx, req)
}

type routeNoteKey struct{}

// routeNote lets an outer guard learn the warehouse chosen further in.
// It is written and read by a single call chain only.
type routeNote struct{ warehouseID string }

func withRouteNote(ctx context.Context) (context.Context, *routeNote) {
	note := &routeNote{}
	return context.WithValue(ctx, routeNoteKey{}, note), note
}

// resolve returns the routed warehouse if one was chosen, else requested.
func (n *routeNote) resolve(requested string) string {
	if n == nil || n.warehouseID == "" {
		return requested
	}
	return n.warehouseID
}
