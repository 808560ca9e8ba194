package inventory

import (
	"context"
	"fmt"
	"sync"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

// IdempotencyPolicy decides when a request id counts as processed.
type IdempotencyPolicy string

const (
	// RecordOnAccept records the id before the inner call and keeps it even when
	// the deduction fails, so a failed request can never be retried under the
	// same id.
	RecordOnAccept IdempotencyPolicy = "accept"
	// RecordOnSuccess keeps the id only once the inner call succeeded. A repeat
	// that arrives while the first call is still running is refused.
	RecordOnSuccess IdempotencyPolicy = "success"
)

func ParseIdempotencyPolicy(s string) (IdempotencyPolicy, error) {
	switch p := IdempotencyPolicy(s); p {
	case RecordOnAccept, RecordOnSuccess:
		return p, nil
	case "":
		return RecordOnAccept, nil
	default:
		return "", fmt.Errorf("inventory: unknown idempotency policy %q", s)
	}
}

type recordState uint8

const (
	recordInFlight recordState = iota + 1
	recordDone
)

const (
	msgIdempotentHit = "idempotent hit: duplicate request returns success"
	msgInProgress    = "request in progress"
)

// IdempotencyGuard short-circuits repeated request ids.
type IdempotencyGuard struct {
	inner  dominv.Deductor
	policy IdempotencyPolicy
	hits   observability.Counter

	mu        sync.Mutex
	processed map[string]recordState
}

func NewIdempotencyGuard(inner dominv.Deductor, policy IdempotencyPolicy, metrics observability.Metrics) *IdempotencyGuard {
	if policy == "" {
		policy = RecordOnAccept
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &IdempotencyGuard{
		inner:     inner,
		policy:    policy,
		hits:      metrics.Counter(observability.MIdempotentHits),
		processed: make(map[string]recordState),
	}
}

func (g *IdempotencyGuard) Deduct(ctx context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	if state, seen := g.claim(req.RequestID); seen {
		if g.policy == RecordOnSuccess && state == recordInFlight {
			return dominv.Failed(msgInProgress)
		}
		g.hits.Add(1)
		return dominv.Succeeded(msgIdempotentHit)
	}

	var succeeded bool
	defer func() { g.settle(req.RequestID, succeeded) }()

	res := g.inner.Deduct(ctx, req)
	succeeded = res.Succeeded
	return res
}

// claim atomically records id as in flight unless it is already known.
func (g *IdempotencyGuard) claim(id string) (recordState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state, ok := g.processed[id]; ok {
		return state, true
	}
	g.processed[id] = recordInFlight
	return recordInFlight, false
}

func (g *IdempotencyGuard) settle(id string, succeeded bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.policy == RecordOnSuccess && !succeeded {
		delete(g.processed, id)
		return
	}
	g.processed[id] = recordDone
}

// Seen reports whether id is currently recorded.
func (g *IdempotencyGuard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.processed[id]
	return ok
}
