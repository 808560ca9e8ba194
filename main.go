package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appinv "github.com/Zhima-Mochi/minishop-stock/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-stock/internal/config"
	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-stock/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
	"github.com/Zhima-Mochi/minishop-stock/internal/pkg/logging"
	workerpresentation "github.com/Zhima-Mochi/minishop-stock/internal/presentation/worker"
)

const serviceVersion = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.App.ServiceName,
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.ExportConfig{
		ServiceName:    cfg.App.ServiceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.Telemetry.OTELEndpoint,
		AuthHeader:     cfg.Telemetry.OTELAuthHeader,
	})
	if err != nil {
		systemLogger.Fatal("tracing_setup_failed", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			systemLogger.Error("tracing_shutdown_error", zap.Error(err))
		}
	}()

	counters, histograms := prometrics.Instruments(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(
		oteltrace.New(cfg.App.ServiceName),
		zaplogger.Wrap(baseLogger),
		counters,
		histograms,
	)

	// In-memory event bus carries deduction requests in and audit events out.
	bus := outbox.NewBus(tel.Logger(),
		outbox.WithQueueSize(cfg.Bus.QueueSize),
		outbox.WithConcurrency(cfg.Bus.Concurrency),
		outbox.WithHandlerTimeout(cfg.Bus.HandlerTimeout),
	)

	inventoryRepo := memory.NewInventoryRepository()
	for key, qty := range cfg.Inventory.Seed {
		if err := inventoryRepo.Seed(key, qty); err != nil {
			systemLogger.Fatal("stock_seed_failed", zap.String("key", key.String()), zap.Error(err))
		}
	}

	pipeline, err := buildPipeline(cfg, inventoryRepo, tel, bus)
	if err != nil {
		systemLogger.Fatal("pipeline_build_failed", zap.Error(err))
	}
	deductUseCase := appinv.NewDeductUseCase(pipeline)

	workerpresentation.NewDeductionWorker(bus, deductUseCase, tel).Start()
	bus.Subscribe(dominv.DeductionFailedEvent{}.EventName(), func(ctx context.Context, e domoutbox.Event) error {
		if evt, ok := e.(dominv.DeductionFailedEvent); ok {
			systemLogger.Warn("deduction_failed_observed",
				zap.String("request_id", evt.RequestID),
				zap.String("warehouse_id", evt.WarehouseID),
				zap.String("message", evt.Message),
			)
		}
		return nil
	})
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	runDemo(ctx, deductUseCase, bus, systemLogger)
	logStock(ctx, inventoryRepo, systemLogger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              cfg.Telemetry.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("metrics_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("metrics_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("metrics_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("metrics_server_stopped")
	}
	logStock(shutdownCtx, inventoryRepo, systemLogger)
}

// logStock writes one line per stock counter with its last change time.
func logStock(ctx context.Context, repo *memory.InventoryRepository, logger *zap.Logger) {
	for _, item := range repo.Snapshot(ctx) {
		logger.Info("stock_snapshot",
			zap.String("key", item.Key.String()),
			zap.Int("quantity", item.Quantity),
			zap.Time("updated_at", item.UpdatedAt),
		)
	}
}

func buildPipeline(cfg *config.Config, repo dominv.Repository, tel observability.Observability, bus *outbox.Bus) (dominv.Deductor, error) {
	order, err := appinv.ParseOrder(cfg.Pipeline.Order)
	if err != nil {
		return nil, err
	}
	policy, err := appinv.ParseIdempotencyPolicy(cfg.Pipeline.IdempotencyPolicy)
	if err != nil {
		return nil, err
	}
	return appinv.NewPipeline(appinv.NewService(repo), appinv.PipelineConfig{
		Order:             order,
		DefaultWarehouse:  cfg.Inventory.DefaultWarehouse,
		IdempotencyPolicy: policy,
		LockTimeout:       cfg.Pipeline.LockTimeout,
		LockTableMaxIdle:  cfg.Pipeline.LockTableMaxIdle,
	}, tel, bus)
}

// runDemo replays the reference flow: a deduction, its repeat, a routed request,
// then one request handed to the worker through the bus.
func runDemo(ctx context.Context, uc *appinv.DeductUseCase, bus *outbox.Bus, logger *zap.Logger) {
	commands := []appinv.DeductCommand{
		{RequestID: "O1", ItemID: "SKU1", WarehouseID: "WH1", Quantity: 3},
		{RequestID: "O1", ItemID: "SKU1", WarehouseID: "WH1", Quantity: 3},
		{RequestID: "O2", ItemID: "SKU1", WarehouseID: "", Quantity: 5},
	}
	for _, cmd := range commands {
		res, err := uc.Execute(ctx, cmd)
		if err != nil {
			logger.Warn("demo_deduct_rejected", zap.String("request_id", cmd.RequestID), zap.Error(err))
			continue
		}
		logger.Info("demo_deduct_done",
			zap.String("request_id", cmd.RequestID),
			zap.Bool("succeeded", res.Succeeded),
			zap.String("message", res.Message),
		)
	}

	evt := dominv.NewDeductionRequestedEvent("O3", "SKU1", "WH1", 2)
	if err := bus.Publish(ctx, evt); err != nil {
		logger.Warn("demo_publish_failed", zap.String("request_id", evt.RequestID), zap.Error(err))
	}
}
