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

	httpadapter "github.com/sebmendo1/MeetMemento-sub000/internal/adapters/http"
	"github.com/sebmendo1/MeetMemento-sub000/internal/bootstrap"
	"github.com/sebmendo1/MeetMemento-sub000/internal/config"
	"github.com/sebmendo1/MeetMemento-sub000/internal/observability/logging"
	"github.com/sebmendo1/MeetMemento-sub000/internal/observability/metrics"
	"github.com/sebmendo1/MeetMemento-sub000/internal/supervisor"
)

func main() {
	cfg := config.Load()
	logger := logging.Install("api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, httpMetrics.Generation())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.RankUC, app.ArtifactUC, app.SchedulerUC, app.ResolveUC, httpadapter.Options{
		RateLimitRPS:   cfg.HTTPRateLimitRPS,
		RateLimitBurst: cfg.HTTPRateLimitBurst,
		MaxInFlight:    64,
		QueueTimeout:   250 * time.Millisecond,
		Metrics:        httpMetrics,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree("api", logger, supervisor.DefaultTreeConfig())
	tree.AddAPI(supervisor.NewHTTPService("http-api", server, 10*time.Second))
	if app.Queue == nil {
		// Without a queue the API owns lock reconciliation.
		tree.AddBackground(supervisor.NewTicker("lock-reconciler", cfg.ReconcileInterval, func(ctx context.Context) error {
			_, err := app.SchedulerUC.Reconcile(ctx)
			return err
		}))
	}

	slog.Info("api_listening", "addr", server.Addr, "nats_enabled", app.Queue != nil)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("api_stopped", "error", err.Error())
	}
}
