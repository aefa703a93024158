package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
)

const (
	lookupHit       = "hit"
	lookupMiss      = "miss"
	lookupExpired   = "expired"
	lookupMilestone = "milestone"
	lookupStale     = "stale_served"
)

type ArtifactCacheUseCase struct {
	docs      ports.DocumentSource
	store     ports.ArtifactStore
	tracker   ports.TrackerStore
	generator *ArtifactGenerator
	cache     domain.CachePolicy
	policy    domain.SchedulerPolicy
	observer  ports.GenerationObserver
	group     singleflight.Group
	now       func() time.Time
}

func NewArtifactCacheUseCase(
	docs ports.DocumentSource,
	store ports.ArtifactStore,
	tracker ports.TrackerStore,
	generator *ArtifactGenerator,
	cache domain.CachePolicy,
	policy domain.SchedulerPolicy,
	observer ports.GenerationObserver,
) *ArtifactCacheUseCase {
	if policy.RecentDocuments <= 0 {
		policy.RecentDocuments = defaultRecentDocuments
	}
	if policy.OracleTimeout <= 0 {
		policy.OracleTimeout = defaultOracleTimeout
	}
	if policy.LockStaleAfter <= 0 {
		policy.LockStaleAfter = 2 * policy.OracleTimeout
	}
	return &ArtifactCacheUseCase{
		docs:      docs,
		store:     store,
		tracker:   tracker,
		generator: generator,
		cache:     cache,
		policy:    policy,
		observer:  observerOrNoop(observer),
		now:       time.Now,
	}
}

// GetOrGenerate serves the cached artifact while it is fresh and regenerates it
// once it expires or enough new documents arrived. currentDocs may be nil, in
// which case the user's recent documents are loaded.
func (uc *ArtifactCacheUseCase) GetOrGenerate(
	ctx context.Context,
	userID string,
	artifactType domain.ArtifactType,
	currentDocs []domain.Document,
) (*domain.ArtifactResult, error) {
	if err := validateArtifactRequest(userID, artifactType); err != nil {
		return nil, err
	}
	docs, count, err := uc.resolveDocs(ctx, userID, currentDocs)
	if err != nil {
		return nil, err
	}

	key := userID + "|" + string(artifactType)
	v, err, _ := uc.group.Do(key, func() (any, error) {
		return uc.getOrGenerate(context.WithoutCancel(ctx), userID, artifactType, docs, count)
	})
	if err != nil {
		return nil, err
	}
	result := *v.(*domain.ArtifactResult)
	return &result, nil
}

func (uc *ArtifactCacheUseCase) getOrGenerate(
	ctx context.Context,
	userID string,
	artifactType domain.ArtifactType,
	docs []domain.Document,
	count int,
) (*domain.ArtifactResult, error) {
	now := uc.now().UTC()
	entry, err := uc.store.GetArtifact(ctx, userID, artifactType)
	if err != nil {
		if !domain.IsKind(err, domain.ErrNotFound) {
			slog.Warn("artifact_cache_read_failed",
				"user_id", userID,
				"type", string(artifactType),
				"error", err.Error(),
			)
		}
		entry = nil
	}

	var fallback *domain.Artifact
	switch {
	case entry == nil || !entry.Valid:
		uc.observer.ObserveCacheLookup(artifactType, lookupMiss)
	case entry.Expired(now):
		uc.observer.ObserveCacheLookup(artifactType, lookupExpired)
		if err := uc.store.InvalidateArtifact(ctx, userID, artifactType, entry.ID); err != nil {
			slog.Warn("artifact_invalidate_failed",
				"user_id", userID,
				"type", string(artifactType),
				"artifact_id", entry.ID,
				"error", err.Error(),
			)
		}
	case milestoneCrossed(entry.SourceDocCount, count, uc.cache.MilestoneEvery):
		uc.observer.ObserveCacheLookup(artifactType, lookupMilestone)
		fallback = entry
	default:
		uc.observer.ObserveCacheLookup(artifactType, lookupHit)
		return cachedResult(entry), nil
	}

	return uc.regenerate(ctx, userID, artifactType, docs, count, fallback)
}

// Refresh regenerates regardless of the milestone gate. It still honors the
// tracker cooldown and the per-user generation lock.
func (uc *ArtifactCacheUseCase) Refresh(
	ctx context.Context,
	userID string,
	artifactType domain.ArtifactType,
	currentDocs []domain.Document,
) (*domain.ArtifactResult, error) {
	const op = "refresh artifact"
	if err := validateArtifactRequest(userID, artifactType); err != nil {
		return nil, err
	}
	docs, count, err := uc.resolveDocs(ctx, userID, currentDocs)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	state, err := uc.getTracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cooldownActive(state.LastGenerationAt, now, uc.policy.Cooldown) {
		return nil, domain.WrapError(domain.ErrCooldown, op, fmt.Errorf("last generation at %s", state.LastGenerationAt.Format(time.RFC3339)))
	}

	fresh, acquired, err := uc.tracker.TryAcquire(ctx, userID, now, now.Add(-uc.policy.LockStaleAfter))
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !acquired {
		return nil, domain.WrapError(domain.ErrLockContention, op, errors.New("another generation holds the lock"))
	}
	if fresh != nil && cooldownActive(fresh.LastGenerationAt, now, uc.policy.Cooldown) {
		uc.releaseFailure(ctx, userID)
		return nil, domain.WrapError(domain.ErrCooldown, op, errors.New("generation finished while waiting for the lock"))
	}

	content, picks, err := uc.produce(ctx, userID, artifactType, docs)
	if err != nil {
		uc.releaseFailure(ctx, userID)
		return nil, err
	}

	if old, err := uc.store.GetArtifact(ctx, userID, artifactType); err == nil && old != nil && old.Valid {
		if err := uc.store.InvalidateArtifact(ctx, userID, artifactType, old.ID); err != nil {
			slog.Warn("artifact_invalidate_failed", "user_id", userID, "type", string(artifactType), "error", err.Error())
		}
	}
	return uc.commit(ctx, userID, artifactType, content, picks, count, true), nil
}

func (uc *ArtifactCacheUseCase) regenerate(
	ctx context.Context,
	userID string,
	artifactType domain.ArtifactType,
	docs []domain.Document,
	count int,
	fallback *domain.Artifact,
) (*domain.ArtifactResult, error) {
	const op = "regenerate artifact"
	now := uc.now().UTC()

	_, acquired, err := uc.tracker.TryAcquire(ctx, userID, now, now.Add(-uc.policy.LockStaleAfter))
	if err != nil {
		if fallback != nil {
			return uc.serveStale(fallback, "lock_error"), nil
		}
		return nil, domain.WrapError(domain.ErrTemporary, op, err)
	}
	if !acquired {
		if fallback != nil {
			return uc.serveStale(fallback, "in_flight"), nil
		}
		return nil, domain.WrapError(domain.ErrTemporary, op, domain.ErrLockContention)
	}

	content, picks, err := uc.produce(ctx, userID, artifactType, docs)
	if err != nil {
		uc.releaseFailure(ctx, userID)
		if fallback != nil && !domain.IsKind(err, domain.ErrValidation) {
			slog.Warn("artifact_regeneration_failed",
				"user_id", userID,
				"type", string(artifactType),
				"error", err.Error(),
			)
			return uc.serveStale(fallback, "generation_failed"), nil
		}
		return nil, err
	}
	return uc.commit(ctx, userID, artifactType, content, picks, count, false), nil
}

func (uc *ArtifactCacheUseCase) produce(ctx context.Context, userID string, artifactType domain.ArtifactType, docs []domain.Document) (string, []domain.ScoredCandidate, error) {
	start := time.Now()
	uc.observer.StartGeneration()
	content, picks, err := uc.generator.Produce(ctx, userID, artifactType, docs)
	uc.observer.FinishGeneration(time.Since(start), err)
	return content, picks, err
}

// commit stores the new content and releases the lock. Only an explicit refresh
// advances the tracker; cache misses and milestones leave the scheduler's
// cooldown and document mark alone. Neither failure is surfaced.
func (uc *ArtifactCacheUseCase) commit(
	ctx context.Context,
	userID string,
	artifactType domain.ArtifactType,
	content string,
	picks []domain.ScoredCandidate,
	count int,
	advance bool,
) *domain.ArtifactResult {
	detached := context.WithoutCancel(ctx)
	stored := uc.generator.Store(detached, userID, artifactType, content, count)
	if err := uc.generator.assign(detached, userID, picks); err != nil {
		slog.Warn("prompt_assign_failed", "user_id", userID, "error", err.Error())
	}

	now := uc.now().UTC()
	if advance {
		if err := uc.tracker.ReleaseSuccess(detached, userID, now, count, strategyFor(artifactType)); err != nil {
			slog.Error("tracker_release_failed", "user_id", userID, "error", err.Error())
		}
	} else {
		uc.releaseFailure(detached, userID)
	}

	generatedAt := now
	if stored != nil {
		generatedAt = stored.GeneratedAt
	}
	return &domain.ArtifactResult{
		Type:        artifactType,
		Content:     content,
		FromCache:   false,
		GeneratedAt: generatedAt,
	}
}

func (uc *ArtifactCacheUseCase) serveStale(entry *domain.Artifact, reason string) *domain.ArtifactResult {
	uc.observer.ObserveCacheLookup(entry.Type, lookupStale)
	slog.Debug("artifact_served_stale",
		"user_id", entry.UserID,
		"type", string(entry.Type),
		"reason", reason,
	)
	return cachedResult(entry)
}

// releaseFailure unlocks without touching the generation mark.
func (uc *ArtifactCacheUseCase) releaseFailure(ctx context.Context, userID string) {
	if err := uc.tracker.ReleaseFailure(context.WithoutCancel(ctx), userID); err != nil {
		slog.Error("tracker_release_failed", "user_id", userID, "error", err.Error())
	}
}

func (uc *ArtifactCacheUseCase) getTracker(ctx context.Context, userID string) (domain.TrackerState, error) {
	state, err := uc.tracker.GetTracker(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return domain.TrackerState{UserID: userID}, nil
		}
		return domain.TrackerState{}, fmt.Errorf("get tracker: %w", err)
	}
	if state == nil {
		return domain.TrackerState{UserID: userID}, nil
	}
	return *state, nil
}

func (uc *ArtifactCacheUseCase) resolveDocs(ctx context.Context, userID string, currentDocs []domain.Document) ([]domain.Document, int, error) {
	if currentDocs != nil {
		return currentDocs, len(currentDocs), nil
	}
	count, err := uc.docs.CountDocuments(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	docs, err := uc.docs.ListRecent(ctx, userID, uc.policy.RecentDocuments)
	if err != nil {
		return nil, 0, fmt.Errorf("list recent documents: %w", err)
	}
	return docs, count, nil
}

func validateArtifactRequest(userID string, artifactType domain.ArtifactType) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "artifact request", errors.New("user_id is required"))
	}
	if !artifactType.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "artifact request", fmt.Errorf("unknown artifact type %q", artifactType))
	}
	return nil
}

func cachedResult(entry *domain.Artifact) *domain.ArtifactResult {
	return &domain.ArtifactResult{
		Type:        entry.Type,
		Content:     entry.Content,
		FromCache:   true,
		GeneratedAt: entry.GeneratedAt,
	}
}

func strategyFor(artifactType domain.ArtifactType) domain.GenerationStrategy {
	if artifactType == domain.ArtifactInsights {
		return domain.StrategyHybrid
	}
	return domain.StrategyRanker
}
