package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-stock/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

var (
	keyWH1 = dominv.NewKey("WH1", "SKU1")
	keyWH2 = dominv.NewKey("WH2", "SKU1")
)

func seededRepo(t *testing.T, seeds map[dominv.Key]int) *memory.InventoryRepository {
	t.Helper()
	repo := memory.NewInventoryRepository()
	for k, q := range seeds {
		require.NoError(t, repo.Seed(k, q))
	}
	return repo
}

func request(id, wh string, qty int) dominv.DeductionRequest {
	return dominv.DeductionRequest{RequestID: id, ItemID: "SKU1", WarehouseID: wh, Quantity: qty}
}

// countingDeductor records every request it receives and answers with result.
type countingDeductor struct {
	mu     sync.Mutex
	calls  int
	seen   []dominv.DeductionRequest
	result dominv.DeductionResult
}

func (d *countingDeductor) Deduct(_ context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.seen = append(d.seen, req)
	return d.result
}

func (d *countingDeductor) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// blockingDeductor parks every call until release is closed and tracks how many
// calls are inside it at once.
type blockingDeductor struct {
	entered chan dominv.DeductionRequest
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func newBlockingDeductor() *blockingDeductor {
	return &blockingDeductor{
		entered: make(chan dominv.DeductionRequest, 16),
		release: make(chan struct{}),
	}
}

func (d *blockingDeductor) Deduct(_ context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	n := d.active.Add(1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	d.entered <- req
	<-d.release
	d.active.Add(-1)
	return dominv.Succeeded("released")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

// fakeMetrics hands out counters that just sum what they are given.
type fakeMetrics struct {
	mu       sync.Mutex
	counters map[observability.MetricKey]*fakeCounter
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counters: make(map[observability.MetricKey]*fakeCounter)}
}

func (m *fakeMetrics) Counter(name observability.MetricKey) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = &fakeCounter{}
		m.counters[name] = c
	}
	return c
}

func (m *fakeMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

func (m *fakeMetrics) total(name observability.MetricKey) float64 {
	return m.Counter(name).(*fakeCounter).Total()
}

type fakeCounter struct {
	mu    sync.Mutex
	total float64
}

func (c *fakeCounter) Add(d float64, _ ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += d
}

func (c *fakeCounter) Bind(...observability.Label) observability.BoundCounter { return c.bound() }

func (c *fakeCounter) bound() observability.BoundCounter { return boundFake{c} }

func (c *fakeCounter) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

type boundFake struct{ c *fakeCounter }

func (b boundFake) Add(d float64) { b.c.Add(d) }
