package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
)

const (
	defaultThreshold = 3
	defaultCooldown  = 24 * time.Hour
)

// SchedulerUseCase gates background generation per user. The durable tracker
// row is the only lock; this type keeps no per-user state in memory.
type SchedulerUseCase struct {
	docs      ports.DocumentSource
	tracker   ports.TrackerStore
	prompts   ports.PromptStore
	generator *ArtifactGenerator
	queue     ports.TriggerQueue
	policy    domain.SchedulerPolicy
	observer  ports.GenerationObserver
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewSchedulerUseCase(
	docs ports.DocumentSource,
	tracker ports.TrackerStore,
	prompts ports.PromptStore,
	generator *ArtifactGenerator,
	queue ports.TriggerQueue,
	policy domain.SchedulerPolicy,
	observer ports.GenerationObserver,
) *SchedulerUseCase {
	if policy.Threshold <= 0 {
		policy.Threshold = defaultThreshold
	}
	if policy.Cooldown < 0 {
		policy.Cooldown = defaultCooldown
	}
	if policy.OracleTimeout <= 0 {
		policy.OracleTimeout = defaultOracleTimeout
	}
	if policy.LockStaleAfter <= 0 {
		policy.LockStaleAfter = 2 * policy.OracleTimeout
	}
	return &SchedulerUseCase{
		docs:      docs,
		tracker:   tracker,
		prompts:   prompts,
		generator: generator,
		queue:     queue,
		policy:    policy,
		observer:  observerOrNoop(observer),
		now:       time.Now,
	}
}

// MaybeTriggerBackgroundGeneration returns immediately. The trigger is published
// to the queue when one is configured, otherwise it is checked in-process.
func (uc *SchedulerUseCase) MaybeTriggerBackgroundGeneration(ctx context.Context, userID string, event domain.TriggerEvent) {
	trigger := domain.Trigger{
		UserID:     strings.TrimSpace(userID),
		Event:      event,
		OccurredAt: uc.now().UTC(),
	}
	if trigger.UserID == "" || !event.Valid() {
		slog.Debug("generation_trigger_ignored", "user_id", userID, "event", string(event))
		uc.observer.ObserveTrigger(event, reasonInvalid)
		return
	}

	detached := context.WithoutCancel(ctx)
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		if uc.queue != nil {
			err := uc.queue.PublishTrigger(detached, trigger)
			if err == nil {
				return
			}
			slog.Warn("generation_trigger_publish_failed",
				"user_id", trigger.UserID,
				"event", string(trigger.Event),
				"error", err.Error(),
			)
		}
		if _, err := uc.HandleTrigger(detached, trigger); err != nil {
			slog.Error("generation_trigger_failed",
				"user_id", trigger.UserID,
				"event", string(trigger.Event),
				"error", err.Error(),
			)
		}
	}()
}

// Wait blocks until every in-process trigger started by this scheduler returns.
func (uc *SchedulerUseCase) Wait() {
	uc.wg.Wait()
}

// HandleTrigger runs the gate and, when it passes, one generation job. Skips and
// job failures are reported through the outcome; the error is reserved for
// store failures the caller may want to retry.
func (uc *SchedulerUseCase) HandleTrigger(ctx context.Context, trigger domain.Trigger) (*domain.GenerationOutcome, error) {
	userID := strings.TrimSpace(trigger.UserID)
	if userID == "" || !trigger.Event.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle trigger", fmt.Errorf("invalid trigger user=%q event=%q", trigger.UserID, trigger.Event))
	}
	outcome := &domain.GenerationOutcome{UserID: userID, Event: trigger.Event}

	state, err := uc.getTracker(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := uc.docs.CountDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	outcome.SourceDocCount = count

	outstanding := 0
	if trigger.Event == domain.EventDocumentCreated && uc.prompts != nil {
		if outstanding, err = uc.prompts.CountOutstanding(ctx, userID); err != nil {
			return nil, fmt.Errorf("count outstanding prompts: %w", err)
		}
	}

	now := uc.now().UTC()
	in := gateInput{
		state:       state,
		event:       trigger.Event,
		docCount:    count,
		outstanding: outstanding,
		now:         now,
		threshold:   uc.policy.Threshold,
		cooldown:    uc.policy.Cooldown,
		staleAfter:  uc.policy.LockStaleAfter,
	}
	if ok, reason := evaluateGate(in); !ok {
		return uc.skip(outcome, reason), nil
	}

	fresh, acquired, err := uc.tracker.TryAcquire(ctx, userID, now, now.Add(-uc.policy.LockStaleAfter))
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !acquired {
		return uc.skip(outcome, reasonInFlight), nil
	}
	if fresh != nil {
		in.state = *fresh
		in.state.InFlight = false
		if ok, reason := evaluateGate(in); !ok {
			uc.releaseFailure(ctx, userID)
			return uc.skip(outcome, reason), nil
		}
	}

	start := time.Now()
	uc.observer.StartGeneration()
	docCount, strategy, err := uc.generator.Run(ctx, userID)
	uc.observer.FinishGeneration(time.Since(start), err)
	if err != nil {
		uc.releaseFailure(ctx, userID)
		reason := reasonFailed
		if domain.IsKind(err, domain.ErrValidation) {
			reason = reasonNoContent
		}
		slog.Warn("generation_job_failed",
			"user_id", userID,
			"event", string(trigger.Event),
			"reason", reason,
			"error", err.Error(),
		)
		outcome.Reason = reason
		uc.observer.ObserveTrigger(trigger.Event, reason)
		return outcome, nil
	}

	if err := uc.tracker.ReleaseSuccess(context.WithoutCancel(ctx), userID, uc.now().UTC(), docCount, strategy); err != nil {
		slog.Error("tracker_release_failed", "user_id", userID, "error", err.Error())
	}
	outcome.Generated = true
	outcome.Reason = reasonGenerated
	outcome.SourceDocCount = docCount
	uc.observer.ObserveTrigger(trigger.Event, reasonGenerated)
	slog.Info("generation_completed",
		"user_id", userID,
		"event", string(trigger.Event),
		"strategy", string(strategy),
		"source_doc_count", docCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome, nil
}

// Reconcile releases generation locks left behind by a crashed process.
func (uc *SchedulerUseCase) Reconcile(ctx context.Context) (int, error) {
	staleBefore := uc.now().UTC().Add(-uc.policy.LockStaleAfter)
	released, err := uc.tracker.ReleaseStale(ctx, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("release stale locks: %w", err)
	}
	if released > 0 {
		slog.Info("stale_generation_locks_released", "count", released, "stale_before", staleBefore)
	}
	return released, nil
}

func (uc *SchedulerUseCase) skip(outcome *domain.GenerationOutcome, reason string) *domain.GenerationOutcome {
	outcome.Reason = reason
	uc.observer.ObserveTrigger(outcome.Event, reason)
	slog.Debug("generation_skipped",
		"user_id", outcome.UserID,
		"event", string(outcome.Event),
		"reason", reason,
		"source_doc_count", outcome.SourceDocCount,
	)
	return outcome
}

func (uc *SchedulerUseCase) releaseFailure(ctx context.Context, userID string) {
	if err := uc.tracker.ReleaseFailure(context.WithoutCancel(ctx), userID); err != nil {
		slog.Error("tracker_release_failed", "user_id", userID, "error", err.Error())
	}
}

func (uc *SchedulerUseCase) getTracker(ctx context.Context, userID string) (domain.TrackerState, error) {
	state, err := uc.tracker.GetTracker(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TrackerState{UserID: userID}, nil
		}
		return domain.TrackerState{}, fmt.Errorf("get tracker: %w", err)
	}
	if state == nil {
		return domain.TrackerState{UserID: userID}, nil
	}
	return *state, nil
}
