package inventory

import (
	"context"
)

// Repository holds the stock counters.
//
// TryDeduct removes quantity from key when enough stock is present. On success it
// returns the remaining quantity, otherwise the current one and false. It never
// mutates on failure.
type Repository interface {
	TryDeduct(ctx context.Context, key Key, quantity int) (int, bool)
}

// Deductor is implemented by the base service and by every guard wrapped around it.
type Deductor interface {
	Deduct(ctx context.Context, req DeductionRequest) DeductionResult
}

// DeductorFunc adapts a function to Deductor.
type DeductorFunc func(ctx context.Context, req DeductionRequest) DeductionResult

func (f DeductorFunc) Deduct(ctx context.Context, req DeductionRequest) DeductionResult {
	return f(ctx, req)
}
