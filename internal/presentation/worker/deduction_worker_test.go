package workerpresentation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-stock/internal/application"
	appinv "github.com/Zhima-Mochi/minishop-stock/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	infraobs "github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

type harness struct {
	tel   observability.Observability
	logs  *observer.ObservedLogs
	spans *tracetest.SpanRecorder
	reg   *prometheus.Registry
}

func newHarness() harness {
	core, logs := observer.New(zap.InfoLevel)
	sr := tracetest.NewSpanRecorder()
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Instruments(prometrics.New(reg, "", ""))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return harness{
		tel:   infraobs.New(oteltrace.NewWithProvider(tp, "worker-test"), zaplogger.Wrap(zap.New(core)), counters, histograms),
		logs:  logs,
		spans: sr,
		reg:   reg,
	}
}

func (h harness) done() []observer.LoggedEntry {
	return h.logs.FilterMessage("use_case_done").All()
}

func stubUseCase(res *dominv.DeductionResult, err error) DeductUseCase {
	return application.UseCaseFunc[appinv.DeductCommand, *dominv.DeductionResult](
		func(context.Context, appinv.DeductCommand) (*dominv.DeductionResult, error) {
			return res, err
		},
	)
}

func TestDeductionWorker_RunsRequestsFromTheBus(t *testing.T) {
	h := newHarness()
	repo := memory.NewInventoryRepository()
	key := dominv.NewKey("WH2", "SKU1")
	require.NoError(t, repo.Seed(key, 100))

	bus := outbox.NewBus(h.tel.Logger())
	pipeline, err := appinv.NewPipeline(appinv.NewService(repo), appinv.PipelineConfig{DefaultWarehouse: "WH2"}, h.tel, bus)
	require.NoError(t, err)

	NewDeductionWorker(bus, appinv.NewDeductUseCase(pipeline), h.tel).Start()
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), dominv.NewDeductionRequestedEvent("O2", "SKU1", "", 5)))

	require.Eventually(t, func() bool { return len(h.done()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 95, repo.Quantity(key))

	fields := h.done()[0].ContextMap()
	assert.Equal(t, "success", fields["outcome"])
	assert.Equal(t, "O2", fields["request_id"])
	assert.Equal(t, useCaseDeductRequest, fields["use_case"])
	assert.NotEmpty(t, fields["event_id"])
	assert.NotEmpty(t, fields["trace_id"])

	audits := h.logs.FilterMessage("deduction_audited").All()
	require.Len(t, audits, 1)
	auditFields := audits[0].ContextMap()
	assert.Equal(t, fields["event_id"], auditFields["event_id"], "audit log inherits the event logger")
	assert.Equal(t, "WH2", auditFields["warehouse_id"])

	assert.Equal(t, 1.0, counterTotal(t, h.reg, "usecase_requests_total"))
	n, err := testutil.GatherAndCount(h.reg, "usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeductionWorker_AuditDoesNotStallASmallBus(t *testing.T) {
	h := newHarness()
	repo := memory.NewInventoryRepository()
	key := dominv.NewKey("WH2", "SKU1")
	require.NoError(t, repo.Seed(key, 100))

	bus := outbox.NewBus(h.tel.Logger(), outbox.WithQueueSize(1))
	pipeline, err := appinv.NewPipeline(appinv.NewService(repo), appinv.PipelineConfig{DefaultWarehouse: "WH2"}, h.tel, bus)
	require.NoError(t, err)

	NewDeductionWorker(bus, appinv.NewDeductUseCase(pipeline), h.tel).Start()
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	start := time.Now()
	for _, id := range []string{"O1", "O2", "O3", "O4"} {
		require.NoError(t, bus.Publish(context.Background(), dominv.NewDeductionRequestedEvent(id, "SKU1", "", 1)))
	}
	require.Eventually(t, func() bool { return len(h.done()) == 4 }, time.Second, 5*time.Millisecond)

	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, 96, repo.Quantity(key))
	for _, e := range h.logs.FilterMessage("deduction_audited").All() {
		if msg, ok := e.ContextMap()["audit_event_error"]; ok {
			assert.NotEqual(t, context.DeadlineExceeded.Error(), msg)
		}
	}
}

func TestDeductionWorker_InvalidRequestIsAnError(t *testing.T) {
	h := newHarness()
	w := NewDeductionWorker(nil, stubUseCase(nil, dominv.ErrInvalidQuantity), h.tel)

	err := w.handleDeductionRequested(context.Background(), dominv.NewDeductionRequestedEvent("O1", "SKU1", "WH1", 0))
	assert.ErrorIs(t, err, dominv.ErrInvalidQuantity)

	entries := h.done()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].ContextMap()["outcome"])
	assert.Equal(t, "INVALID_REQUEST", entries[0].ContextMap()["status"])

	spans := h.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spanPrefix+"DeductionRequested", spans[0].Name())
}

func TestDeductionWorker_RefusedDeductionIsHandled(t *testing.T) {
	h := newHarness()
	res := dominv.Failed("insufficient stock, cur=0")
	w := NewDeductionWorker(nil, stubUseCase(&res, nil), h.tel)

	err := w.handleDeductionRequested(context.Background(), dominv.NewDeductionRequestedEvent("O1", "SKU1", "WH1", 4))
	require.NoError(t, err)

	fields := h.done()[0].ContextMap()
	assert.Equal(t, "rejected", fields["outcome"])
	assert.Equal(t, res.Message, fields["message"])
}

func TestDeductionWorker_IgnoresForeignEvents(t *testing.T) {
	h := newHarness()
	w := NewDeductionWorker(nil, stubUseCase(nil, nil), h.tel)

	err := w.handleDeductionRequested(context.Background(), dominv.DeductedEvent{})
	require.NoError(t, err)
	assert.Empty(t, h.done())
}

func TestWithEventContext_KeepsGivenEventID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("t").Start(context.Background(), "s")
	defer span.End()

	ctx, logger := WithEventContext(ctx, zaplogger.Wrap(zap.New(core)), span.SpanContext(), map[string]string{
		"event_id": "evt-1",
		"event":    "inventory.deduction_requested",
		"empty":    "",
	})
	logger.Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, "inventory.deduction_requested", fields["event"])
	assert.NotContains(t, fields, "empty")
	assert.NotNil(t, ctx)
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
