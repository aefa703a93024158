package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sebmendo1/MeetMemento-sub000/internal/config"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/relevance"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/usecase"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/catalog"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/llm/ollama"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/queue/nats"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/repository/sqlstore"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/resilience"
)

type App struct {
	Config   config.Config
	Executor *resilience.Executor

	// Queue is nil when NATS is disabled; triggers are then handled in-process.
	Queue *nats.Queue

	RankUC      *usecase.RankPromptsUseCase
	ArtifactUC  *usecase.ArtifactCacheUseCase
	SchedulerUC *usecase.SchedulerUseCase
	ResolveUC   *usecase.ResolvePromptUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observer ports.GenerationObserver) (*App, error) {
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	db, err := sqlstore.OpenDB(dialect, dsnFor(cfg, dialect))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := sqlstore.EnsureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	candidates := sqlstore.NewCandidateRepository(db, dialect)
	if err := seedCatalog(ctx, cfg.CatalogPath, candidates); err != nil {
		_ = db.Close()
		return nil, err
	}

	reducer, err := relevance.NewReducer(cfg.NormalizerStrategy)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	pipeline := relevance.NewPipeline(relevance.NewNormalizer(reducer, cfg.MinTokenLength))

	executor := resilience.NewExecutor(resilienceConfig(cfg))

	var queue *nats.Queue
	var triggerQueue ports.TriggerQueue
	if cfg.NATSEnabled {
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			QueueGroup:         cfg.NATSQueueGroup,
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init trigger queue: %w", err)
		}
		triggerQueue = queue
	}

	var oracle ports.GenerationOracle
	if cfg.OracleEnabled {
		oracle = ollama.New(ollama.Config{
			BaseURL:           cfg.OllamaURL,
			Model:             cfg.OllamaGenModel,
			RequestsPerSecond: cfg.OllamaRequestsPerSecond,
			Burst:             cfg.OllamaBurst,
		}, executor)
	}

	docs := sqlstore.NewDocumentRepository(db, dialect)
	tracker := sqlstore.NewTrackerRepository(db, dialect)
	artifacts := sqlstore.NewArtifactRepository(db, dialect)
	prompts := sqlstore.NewPromptRepository(db, dialect)

	policy := cfg.SchedulerPolicy()
	cachePolicy := cfg.CachePolicy()

	rankUC := usecase.NewRankPromptsUseCase(docs, candidates, pipeline, cfg.RankOptions(), cfg.RecentDocuments, observer)
	generator := usecase.NewArtifactGenerator(docs, oracle, rankUC, artifacts, prompts, cachePolicy, policy)
	artifactUC := usecase.NewArtifactCacheUseCase(docs, artifacts, tracker, generator, cachePolicy, policy, observer)
	schedulerUC := usecase.NewSchedulerUseCase(docs, tracker, prompts, generator, triggerQueue, policy, observer)
	resolveUC := usecase.NewResolvePromptUseCase(prompts, schedulerUC)

	slog.Info("bootstrap_ready",
		"db_driver", string(dialect),
		"nats_enabled", cfg.NATSEnabled,
		"oracle_enabled", cfg.OracleEnabled,
		"strategy", string(policy.Strategy),
		"normalizer", reducer.Name(),
	)

	return &App{
		Config:   cfg,
		Executor: executor,
		Queue:    queue,

		RankUC:      rankUC,
		ArtifactUC:  artifactUC,
		SchedulerUC: schedulerUC,
		ResolveUC:   resolveUC,

		closeFn: func() {
			schedulerUC.Wait()
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func dsnFor(cfg config.Config, dialect sqlstore.Dialect) string {
	if dialect == sqlstore.DialectSQLite {
		return cfg.SQLitePath
	}
	return cfg.PostgresDSN
}

type candidateSeeder interface {
	Seed(ctx context.Context, candidates []domain.Candidate) error
}

func seedCatalog(ctx context.Context, path string, seeder candidateSeeder) error {
	pool, err := catalog.Load(path)
	if err != nil {
		return fmt.Errorf("load prompt catalog: %w", err)
	}
	if err := seeder.Seed(ctx, pool.Candidates()); err != nil {
		return fmt.Errorf("seed prompt catalog: %w", err)
	}
	return nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.AttemptTimeout = cfg.AttemptTimeout
	out.BreakerEnabled = cfg.BreakerEnabled
	out.Operations = map[string]resilience.OperationPolicy{
		ollama.OperationGenerateInsight: resilience.GenerationPolicy(),
		nats.OperationPublishTrigger:    resilience.PublishPolicy(),
	}
	return out
}
