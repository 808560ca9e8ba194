package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-stock/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

// Guard names one wrapper the pipeline can apply.
type Guard string

const (
	GuardAudit       Guard = "audit"
	GuardRouting     Guard = "routing"
	GuardExclusion   Guard = "exclusion"
	GuardIdempotency Guard = "idempotency"
)

var (
	ErrUnknownGuard            = errors.New("inventory: unknown guard")
	ErrDuplicateGuard          = errors.New("inventory: guard listed twice")
	ErrExclusionOutsideRouting = errors.New("inventory: exclusion must sit inside routing to lock the resolved key")
	ErrMissingDefaultWarehouse = errors.New("inventory: routing needs a default warehouse")
)

// DefaultOrder lists guards outermost first. Audit sees repeats and routed
// requests; exclusion locks the routed key.
func DefaultOrder() []Guard {
	return []Guard{GuardAudit, GuardRouting, GuardExclusion, GuardIdempotency}
}

// OrderNone is the order string for a pipeline with no guards at all.
const OrderNone = "none"

// ParseOrder reads a comma separated guard list, outermost first. A blank string
// gives DefaultOrder and OrderNone gives an empty, non-nil order.
func ParseOrder(s string) ([]Guard, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultOrder(), nil
	case OrderNone:
		return []Guard{}, nil
	}
	var order []Guard
	for _, part := range strings.Split(s, ",") {
		order = append(order, Guard(strings.ToLower(strings.TrimSpace(part))))
	}
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

type PipelineConfig struct {
	// Order lists guards outermost first. Nil means DefaultOrder.
	Order             []Guard
	DefaultWarehouse  string
	IdempotencyPolicy IdempotencyPolicy
	LockTimeout       time.Duration
	LockTableMaxIdle  int
}

// Wrapper builds one guard around inner.
type Wrapper func(inner dominv.Deductor) dominv.Deductor

// Chain wraps base with wrappers, the first wrapper ending up outermost.
func Chain(base dominv.Deductor, wrappers ...Wrapper) dominv.Deductor {
	d := base
	for i := len(wrappers) - 1; i >= 0; i-- {
		d = wrappers[i](d)
	}
	return d
}

// NewPipeline assembles the configured guards around base.
func NewPipeline(base dominv.Deductor, cfg PipelineConfig, tel observability.Observability, publisher domoutbox.Publisher) (dominv.Deductor, error) {
	order := cfg.Order
	if order == nil {
		order = DefaultOrder()
	}
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	_, _, metrics := observability.Resolve(tel)
	wrappers := make([]Wrapper, 0, len(order))
	for _, g := range order {
		switch g {
		case GuardAudit:
			wrappers = append(wrappers, func(inner dominv.Deductor) dominv.Deductor {
				return NewAuditGuard(inner, publisher, tel)
			})
		case GuardRouting:
			if strings.TrimSpace(cfg.DefaultWarehouse) == "" {
				return nil, ErrMissingDefaultWarehouse
			}
			wrappers = append(wrappers, func(inner dominv.Deductor) dominv.Deductor {
				return NewRoutingGuard(inner, cfg.DefaultWarehouse)
			})
		case GuardExclusion:
			wrappers = append(wrappers, func(inner dominv.Deductor) dominv.Deductor {
				return NewExclusionGuard(inner, ExclusionOptions{
					Timeout:     cfg.LockTimeout,
					MaxIdleKeys: cfg.LockTableMaxIdle,
				}, metrics)
			})
		case GuardIdempotency:
			wrappers = append(wrappers, func(inner dominv.Deductor) dominv.Deductor {
				return NewIdempotencyGuard(inner, cfg.IdempotencyPolicy, metrics)
			})
		}
	}
	return Chain(base, wrappers...), nil
}

func validateOrder(order []Guard) error {
	pos := make(map[Guard]int, len(order))
	for i, g := range order {
		switch g {
		case GuardAudit, GuardRouting, GuardExclusion, GuardIdempotency:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownGuard, g)
		}
		if _, dup := pos[g]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateGuard, g)
		}
		pos[g] = i
	}

	ex, hasEx := pos[GuardExclusion]
	rt, hasRt := pos[GuardRouting]
	if hasEx && hasRt && ex < rt {
		return ErrExclusionOutsideRouting
	}
	return nil
}
