package inventory

import (
	"context"
	"sync"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

const msgLockTimeout = "lock wait timed out"

// keyLock is a one-slot semaphore so acquisition can give up on ctx.
// refs counts holders and waiters; only entries with refs == 0 are evictable.
type keyLock struct {
	sem  chan struct{}
	refs int
}

// ExclusionGuard runs at most one inner call per key at a time. Calls for
// different keys do not wait on each other.
type ExclusionGuard struct {
	inner        dominv.Deductor
	timeout      time.Duration
	maxIdle      int
	waitAcquired observability.BoundHistogram // lock_wait_duration_seconds{outcome="acquired"}
	waitTimedOut observability.BoundHistogram // lock_wait_duration_seconds{outcome="timeout"}

	mu    sync.Mutex
	locks map[dominv.Key]*keyLock
}

type ExclusionOptions struct {
	// Timeout bounds the wait for a busy key; zero waits for as long as ctx allows.
	Timeout time.Duration
	// MaxIdleKeys caps how many unused lock entries are retained; zero keeps all.
	MaxIdleKeys int
}

func NewExclusionGuard(inner dominv.Deductor, opts ExclusionOptions, metrics observability.Metrics) *ExclusionGuard {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	lockWait := metrics.Histogram(observability.MLockWaitDuration)
	return &ExclusionGuard{
		inner:        inner,
		timeout:      opts.Timeout,
		maxIdle:      opts.MaxIdleKeys,
		waitAcquired: lockWait.Bind(observability.L("outcome", "acquired")),
		waitTimedOut: lockWait.Bind(observability.L("outcome", "timeout")),
		locks:        make(map[dominv.Key]*keyLock),
	}
}

func (g *ExclusionGuard) Deduct(ctx context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	key := req.Key()
	l := g.ref(key)
	defer g.unref(key, l)

	start := time.Now()
	if err := g.lock(ctx, l); err != nil {
		g.waitTimedOut.Observe(time.Since(start).Seconds())
		return dominv.Failed("%s: %v", msgLockTimeout, err)
	}
	defer func() { <-l.sem }()
	g.waitAcquired.Observe(time.Since(start).Seconds())

	return g.inner.Deduct(ctx, req)
}

// ref returns the lock for key, creating it on first use.
func (g *ExclusionGuard) ref(key dominv.Key) *keyLock {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		g.locks[key] = l
	}
	l.refs++
	return l
}

func (g *ExclusionGuard) unref(key dominv.Key, l *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()

	l.refs--
	if l.refs == 0 && g.maxIdle > 0 && len(g.locks) > g.maxIdle {
		delete(g.locks, key)
	}
}

func (g *ExclusionGuard) lock(ctx context.Context, l *keyLock) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	default:
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Keys reports how many lock entries the table holds.
func (g *ExclusionGuard) Keys() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
