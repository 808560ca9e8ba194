package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-stock/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability/logctx"
)

const (
	auditComponent  = "inventory.audit"
	deductSpanName  = "Inventory.Deduct"
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	statusDeducted  = "OK"
	statusRejected  = "DEDUCTION_FAILED"
	auditLogMessage = "deduction_audited"
)

// AuditGuard records every call that passes through it: a structured log line,
// a span, metrics and an audit event on the outbox. The inner result is returned
// as is.
type AuditGuard struct {
	inner     dominv.Deductor
	publisher domoutbox.Publisher
	log       observability.Logger
	tracer    observability.Tracer

	deductions   map[string]observability.BoundCounter   // deductions_total{outcome}
	durations    map[string]observability.BoundHistogram // deduction_duration_seconds{outcome}
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewAuditGuard(inner dominv.Deductor, publisher domoutbox.Publisher, tel observability.Observability) *AuditGuard {
	logger, tracer, metrics := observability.Resolve(tel)
	g := &AuditGuard{
		inner:        inner,
		publisher:    publisher,
		log:          logger.With(observability.F("component", auditComponent)),
		tracer:       tracer,
		deductions:   make(map[string]observability.BoundCounter, 2),
		durations:    make(map[string]observability.BoundHistogram, 2),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
	counter := metrics.Counter(observability.MDeductions)
	histogram := metrics.Histogram(observability.MDeductionDuration)
	for _, outcome := range []string{outcomeSuccess, outcomeFailure} {
		g.deductions[outcome] = counter.Bind(observability.L("outcome", outcome))
		g.durations[outcome] = histogram.Bind(observability.L("outcome", outcome))
	}
	return g
}

func (g *AuditGuard) Deduct(ctx context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	ctx, span := g.tracer.Start(ctx, deductSpanName,
		attribute.String("request.id", req.RequestID),
		attribute.String("item.id", req.ItemID),
		attribute.String("warehouse.id", req.WarehouseID),
		attribute.Int("deduction.quantity", req.Quantity),
	)
	defer span.End()
	ctx, note := withRouteNote(ctx)

	start := time.Now()
	res := g.inner.Deduct(ctx, req)
	elapsed := time.Since(start)

	resolved := req.WithWarehouse(note.resolve(req.WarehouseID))

	outcome, status := outcomeSuccess, statusDeducted
	if !res.Succeeded {
		outcome, status = outcomeFailure, statusRejected
	}

	span.SetAttributes(
		attribute.String("warehouse.resolved_id", resolved.WarehouseID),
		attribute.Bool("deduction.succeeded", res.Succeeded),
		attribute.String("deduction.message", res.Message),
	)
	if res.Succeeded {
		span.SetStatus(codes.Ok, status)
	} else {
		span.SetStatus(codes.Error, status)
	}

	g.deductions[outcome].Add(1)
	g.durations[outcome].Observe(elapsed.Seconds())

	audit := dominv.NewDeductionAudit(uuid.NewString(), resolved, res, elapsed)
	fields := []observability.Field{
		observability.F("audit_id", audit.AuditID),
		observability.F("request_id", req.RequestID),
		observability.F("item_id", req.ItemID),
		observability.F("warehouse_id", resolved.WarehouseID),
		observability.F("requested_warehouse_id", req.WarehouseID),
		observability.F("quantity", req.Quantity),
		observability.F("succeeded", res.Succeeded),
		observability.F("message", res.Message),
		observability.F("outcome", outcome),
		observability.F("elapsed", elapsed),
		observability.F("latency_seconds", elapsed.Seconds()),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	var event domoutbox.Event = dominv.DeductedEvent{DeductionAudit: audit}
	if !res.Succeeded {
		event = dominv.DeductionFailedEvent{DeductionAudit: audit}
	}
	if err := g.publish(ctx, event); err != nil {
		fields = append(fields, observability.F("audit_event_error", err.Error()))
	}

	logctx.FromOr(ctx, g.log).Info(auditLogMessage, fields...)
	return res
}

func (g *AuditGuard) publish(ctx context.Context, event domoutbox.Event) error {
	if g.publisher == nil {
		return nil
	}

	start := time.Now()
	var err error
	if tp, ok := g.publisher.(domoutbox.TryPublisher); ok {
		// Runs on the bus dispatcher when the request came in through a worker.
		err = tp.TryPublish(event)
	} else {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = g.publisher.Publish(pubCtx, event)
		cancel()
	}

	outcome := "success"
	switch {
	case errors.Is(err, domoutbox.ErrQueueFull):
		outcome = "dropped"
	case err != nil:
		outcome = "error"
	}

	g.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", outcome),
	)
	g.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", event.EventName()),
	)
	return err
}
