package workerpresentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zhima-Mochi/minishop-stock/internal/application"
	appinv "github.com/Zhima-Mochi/minishop-stock/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-stock/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
)

const (
	workerService        = "inventory-worker"
	spanPrefix           = "Worker."
	useCaseDeductRequest = "inventory.worker.deduction_requested"
)

// DeductUseCase is what the worker runs for each requested deduction.
type DeductUseCase = application.UseCase[appinv.DeductCommand, *dominv.DeductionResult]

// DeductionWorker consumes deduction requests from the bus and runs them through
// the deduction use case.
type DeductionWorker struct {
	subscriber domoutbox.Subscriber
	uc         DeductUseCase
	tracer     observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewDeductionWorker(subscriber domoutbox.Subscriber, uc DeductUseCase, tel observability.Observability) *DeductionWorker {
	logger, tracer, metrics := observability.Resolve(tel)
	return &DeductionWorker{
		subscriber:   subscriber,
		uc:           uc,
		tracer:       tracer,
		log:          logger.With(observability.F("service", workerService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (w *DeductionWorker) Start() {
	if w.subscriber == nil || w.uc == nil {
		return
	}
	w.subscriber.Subscribe(dominv.DeductionRequestedEvent{}.EventName(), w.handleDeductionRequested)
}

func (w *DeductionWorker) handleDeductionRequested(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominv.DeductionRequestedEvent)
	if !ok {
		w.reqCounter.Add(1, observability.L("use_case", useCaseDeductRequest), observability.L("outcome", "ignored"))
		return nil
	}

	ctx, span := w.tracer.Start(ctx, spanPrefix+"DeductionRequested",
		attribute.String("use_case", useCaseDeductRequest),
		attribute.String("event", e.EventName()),
		attribute.String("request.id", evt.RequestID),
	)
	ctx, logger := WithEventContext(ctx, w.log, span.SpanContext(), map[string]string{
		"use_case": useCaseDeductRequest,
		"event":    e.EventName(),
	})

	start := time.Now()
	outcome, status := "success", "OK"
	var message string

	defer func() {
		lat := time.Since(start).Seconds()
		w.reqCounter.Add(1, observability.L("use_case", useCaseDeductRequest), observability.L("outcome", outcome))
		w.durHistogram.Observe(lat, observability.L("use_case", useCaseDeductRequest))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("request_id", evt.RequestID),
			observability.F("latency_seconds", lat),
		}
		if message != "" {
			fields = append(fields, observability.F("message", message))
		}
		logger.Info("use_case_done", fields...)

		if outcome == "error" {
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	res, err := w.uc.Execute(ctx, appinv.CommandFromEvent(evt))
	if err != nil {
		outcome, status = "error", "INVALID_REQUEST"
		span.RecordError(err)
		return fmt.Errorf("worker: deduct %s: %w", evt.RequestID, err)
	}

	message = res.Message
	if !res.Succeeded {
		// A refused deduction is a handled outcome, not a worker failure.
		outcome, status = "rejected", "DEDUCTION_FAILED"
	}
	return nil
}
