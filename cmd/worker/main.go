package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/bootstrap"
	"github.com/sebmendo1/MeetMemento-sub000/internal/config"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/llm/ollama"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/queue/nats"
	"github.com/sebmendo1/MeetMemento-sub000/internal/observability/logging"
	"github.com/sebmendo1/MeetMemento-sub000/internal/observability/metrics"
	"github.com/sebmendo1/MeetMemento-sub000/internal/supervisor"
)

func main() {
	cfg := config.Load()
	logger := logging.Install("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Generation())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()
	if app.Queue == nil {
		slog.Error("worker_requires_nats", "hint", "set NATS_ENABLED=true")
		os.Exit(1)
	}

	handle := func(handlerCtx context.Context, trigger domain.Trigger) error {
		if !trigger.OccurredAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(trigger.OccurredAt))
		}
		outcome, err := app.SchedulerUC.HandleTrigger(handlerCtx, trigger)
		workerMetrics.ObserveConsumed(err)
		if err != nil {
			return err
		}
		slog.Debug("trigger_handled",
			"user_id", outcome.UserID,
			"event", string(outcome.Event),
			"generated", outcome.Generated,
			"reason", outcome.Reason,
		)
		return nil
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	tree := supervisor.NewTree("worker", logger, supervisor.DefaultTreeConfig())
	tree.AddBackground(supervisor.NewTriggerConsumer(app.Queue, handle))
	tree.AddBackground(supervisor.NewTicker("lock-reconciler", cfg.ReconcileInterval, func(ctx context.Context) error {
		released, err := app.SchedulerUC.Reconcile(ctx)
		workerMetrics.ObserveStaleReleased(released)
		return err
	}))
	tree.AddBackground(supervisor.NewTicker("breaker-state", 15*time.Second, func(context.Context) error {
		for _, op := range []string{ollama.OperationGenerateInsight, nats.OperationPublishTrigger} {
			workerMetrics.SetBreakerState(op, int(app.Executor.State(op)))
		}
		return nil
	}))
	tree.AddAPI(supervisor.NewHTTPService("worker-metrics", metricsServer, 5*time.Second))

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "queue_group", cfg.NATSQueueGroup)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_stopped", "error", err.Error())
	}
}
