package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

const testUser = "user-1"

var journal = []string{
	"I feel stressed about work deadlines",
	"work deadlines are overwhelming",
	"the pressure at work keeps building",
	"another late night chasing project deadlines",
	"stressed again before the review",
	"colleagues helped with the deadline pressure",
}

func docCreated() domain.Trigger {
	return domain.Trigger{UserID: testUser, Event: domain.EventDocumentCreated}
}

func TestHandleTriggerFiresAtEachMilestone(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: 7 * 24 * time.Hour, MilestoneEvery: 3}, nil)

	var generatedAt []int
	for i, text := range journal {
		h.docs.add(testUser, text)
		outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
		if err != nil {
			t.Fatalf("trigger %d: %v", i+1, err)
		}
		if outcome.Generated {
			generatedAt = append(generatedAt, i+1)
		} else if outcome.Reason != reasonThreshold {
			t.Fatalf("trigger %d: unexpected skip reason %q", i+1, outcome.Reason)
		}
	}

	if len(generatedAt) != 2 || generatedAt[0] != 3 || generatedAt[1] != 6 {
		t.Fatalf("expected generation at documents [3 6], got %v", generatedAt)
	}
	state := h.tracker.state(testUser)
	if state.LastSourceDocCountMark != 6 || state.InFlight {
		t.Fatalf("unexpected tracker state: %+v", state)
	}
	if state.Strategy != domain.StrategyHybrid {
		t.Fatalf("expected hybrid strategy, got %q", state.Strategy)
	}
}

func TestHandleTriggerWritesBothArtifactsInHybridMode(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if !outcome.Generated {
		t.Fatalf("expected generation, got reason %q", outcome.Reason)
	}

	insights := h.artifacts.get(testUser, domain.ArtifactInsights)
	if insights == nil || !insights.Valid || insights.SourceDocCount != 3 {
		t.Fatalf("unexpected insights artifact: %+v", insights)
	}
	insight, err := DecodeInsight(insights.Content)
	if err != nil {
		t.Fatalf("decode insight: %v", err)
	}
	if len(insight.Themes) != 2 {
		t.Fatalf("unexpected themes: %v", insight.Themes)
	}

	prompts := h.artifacts.get(testUser, domain.ArtifactPrompts)
	if prompts == nil {
		t.Fatalf("expected prompts artifact")
	}
	set, err := DecodePromptSet(prompts.Content)
	if err != nil {
		t.Fatalf("decode prompt set: %v", err)
	}
	if len(set.Prompts) == 0 || set.Prompts[0].Candidate.ID != "stress-1" {
		t.Fatalf("expected stress prompt first, got %+v", set.Prompts)
	}
}

func TestHandleTriggerRankerStrategySkipsOracle(t *testing.T) {
	policy := defaultTestPolicy()
	policy.Strategy = domain.StrategyRanker
	h := newHarness(policy, domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil || !outcome.Generated {
		t.Fatalf("expected generation, got outcome=%+v err=%v", outcome, err)
	}
	if h.oracle.calls.Load() != 0 {
		t.Fatalf("oracle must not be called in ranker mode")
	}
	if h.artifacts.get(testUser, domain.ArtifactInsights) != nil {
		t.Fatalf("ranker mode must not write insights")
	}
	if got := h.tracker.state(testUser).Strategy; got != domain.StrategyRanker {
		t.Fatalf("expected ranker strategy, got %q", got)
	}
}

func TestHandleTriggerConcurrentTriggersRunOneJob(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		generated int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
			if err != nil {
				t.Errorf("HandleTrigger() error = %v", err)
				return
			}
			if outcome.Generated {
				mu.Lock()
				generated++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if generated != 1 {
		t.Fatalf("expected exactly one generation, got %d", generated)
	}
	if calls := h.oracle.calls.Load(); calls != 1 {
		t.Fatalf("expected one oracle call, got %d", calls)
	}
	if h.tracker.state(testUser).InFlight {
		t.Fatalf("lock must be released")
	}
}

func TestHandleTriggerFailureDoesNotAdvanceTracker(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	h.oracle.err = errors.New("oracle unavailable")

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("generation failure must not surface: %v", err)
	}
	if outcome.Generated || outcome.Reason != reasonFailed {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	state := h.tracker.state(testUser)
	if state.InFlight || state.LastGenerationAt != nil || state.LastSourceDocCountMark != 0 {
		t.Fatalf("tracker advanced after failure: %+v", state)
	}
	if h.artifacts.get(testUser, domain.ArtifactPrompts) != nil {
		t.Fatalf("nothing may be written when the oracle fails")
	}

	h.oracle.err = nil
	outcome, err = h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil || !outcome.Generated {
		t.Fatalf("expected retry to generate, got outcome=%+v err=%v", outcome, err)
	}
}

func TestHandleTriggerRejectsMalformedOracleOutput(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	h.oracle.insight = domain.Insight{Summary: "too short"}

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if outcome.Generated || outcome.Reason != reasonFailed {
		t.Fatalf("expected malformed output to fail generation, got %+v", outcome)
	}
	if h.artifacts.get(testUser, domain.ArtifactInsights) != nil {
		t.Fatalf("malformed insight must not be cached")
	}
}

func TestHandleTriggerOracleTimeout(t *testing.T) {
	policy := defaultTestPolicy()
	policy.OracleTimeout = 20 * time.Millisecond
	h := newHarness(policy, domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	h.oracle.block = make(chan struct{})
	defer close(h.oracle.block)

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if outcome.Generated || outcome.Reason != reasonFailed {
		t.Fatalf("expected timeout to fail generation, got %+v", outcome)
	}
	if h.tracker.state(testUser).InFlight {
		t.Fatalf("lock must be released after timeout")
	}
}

func TestHandleTriggerCooldown(t *testing.T) {
	policy := defaultTestPolicy()
	policy.Cooldown = 24 * time.Hour
	h := newHarness(policy, domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	last := h.clock.Now().Add(-time.Hour)
	h.tracker.set(domain.TrackerState{UserID: testUser, LastGenerationAt: &last})

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if outcome.Reason != reasonCooldown {
		t.Fatalf("expected cooldown, got %q", outcome.Reason)
	}
	if h.tracker.acquireCalls != 0 {
		t.Fatalf("lock must not be attempted during cooldown")
	}

	h.clock.Advance(24 * time.Hour)
	outcome, err = h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil || !outcome.Generated {
		t.Fatalf("expected generation after cooldown, got outcome=%+v err=%v", outcome, err)
	}
}

func TestHandleTriggerOutstandingPrompts(t *testing.T) {
	prompts := &promptStoreFake{assigned: []domain.PromptAssignment{{ID: "p-1", UserID: testUser, CandidateID: "stress-1"}}}
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, prompts)
	h.docs.add(testUser, journal[:3]...)

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if outcome.Reason != reasonOutstanding {
		t.Fatalf("expected outstanding prompts to block, got %q", outcome.Reason)
	}

	outcome, err = h.scheduler.HandleTrigger(context.Background(), domain.Trigger{UserID: testUser, Event: domain.EventPromptsResolved})
	if err != nil || !outcome.Generated {
		t.Fatalf("expected prompts_resolved to generate, got outcome=%+v err=%v", outcome, err)
	}
	outstanding, _ := prompts.ListOutstanding(context.Background(), testUser)
	if len(outstanding) == 0 {
		t.Fatalf("expected new prompts to be assigned")
	}
	for _, p := range outstanding {
		if p.ID == "p-1" {
			t.Fatalf("the earlier prompt must be replaced by the new set")
		}
	}
}

func TestHandleTriggerInsufficientContent(t *testing.T) {
	policy := defaultTestPolicy()
	policy.MinSourceDocuments = 5
	h := newHarness(policy, domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil {
		t.Fatalf("HandleTrigger() error = %v", err)
	}
	if outcome.Generated || outcome.Reason != reasonNoContent {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if state := h.tracker.state(testUser); state.InFlight || state.LastSourceDocCountMark != 0 {
		t.Fatalf("tracker advanced: %+v", state)
	}
}

func TestHandleTriggerInvalidTrigger(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour}, nil)

	_, err := h.scheduler.HandleTrigger(context.Background(), domain.Trigger{UserID: " ", Event: domain.EventDocumentCreated})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = h.scheduler.HandleTrigger(context.Background(), domain.Trigger{UserID: testUser, Event: "unknown"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHandleTriggerTakesOverStaleLock(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	acquired := h.clock.Now().Add(-2 * time.Minute)
	h.tracker.set(domain.TrackerState{UserID: testUser, InFlight: true, LockAcquiredAt: &acquired})

	outcome, err := h.scheduler.HandleTrigger(context.Background(), docCreated())
	if err != nil || !outcome.Generated {
		t.Fatalf("expected stale lock to be taken over, got outcome=%+v err=%v", outcome, err)
	}
}

func TestMaybeTriggerRunsInProcessWithoutQueue(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)

	ctx, cancel := context.WithCancel(context.Background())
	h.scheduler.MaybeTriggerBackgroundGeneration(ctx, testUser, domain.EventDocumentCreated)
	cancel()
	h.scheduler.Wait()

	if got := h.observer.triggers["document_created/generated"]; got != 1 {
		t.Fatalf("expected one generation, observer=%v", h.observer.triggers)
	}
}

func TestMaybeTriggerPublishesToQueue(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	queue := &queueFake{}
	h.scheduler.queue = queue

	h.scheduler.MaybeTriggerBackgroundGeneration(context.Background(), testUser, domain.EventDocumentCreated)
	h.scheduler.Wait()

	if len(queue.published) != 1 || queue.published[0].UserID != testUser {
		t.Fatalf("unexpected published triggers: %+v", queue.published)
	}
	if h.tracker.acquireCalls != 0 {
		t.Fatalf("queued trigger must not be handled in-process")
	}
}

func TestMaybeTriggerFallsBackWhenPublishFails(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour, MilestoneEvery: 3}, nil)
	h.docs.add(testUser, journal[:3]...)
	h.scheduler.queue = &queueFake{err: errors.New("nats: connection closed")}

	h.scheduler.MaybeTriggerBackgroundGeneration(context.Background(), testUser, domain.EventDocumentCreated)
	h.scheduler.Wait()

	if h.tracker.successes != 1 {
		t.Fatalf("expected in-process generation after publish failure")
	}
}

func TestMaybeTriggerIgnoresInvalidEvent(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour}, nil)

	h.scheduler.MaybeTriggerBackgroundGeneration(context.Background(), testUser, "bogus")
	h.scheduler.Wait()

	if h.tracker.acquireCalls != 0 {
		t.Fatalf("invalid event must be dropped")
	}
}

func TestReconcileReleasesStaleLocks(t *testing.T) {
	h := newHarness(defaultTestPolicy(), domain.CachePolicy{TTL: time.Hour}, nil)
	stale := h.clock.Now().Add(-5 * time.Minute)
	fresh := h.clock.Now().Add(-10 * time.Second)
	h.tracker.set(domain.TrackerState{UserID: "stale", InFlight: true, LockAcquiredAt: &stale})
	h.tracker.set(domain.TrackerState{UserID: "fresh", InFlight: true, LockAcquiredAt: &fresh})

	released, err := h.scheduler.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released lock, got %d", released)
	}
	if h.tracker.state("stale").InFlight || !h.tracker.state("fresh").InFlight {
		t.Fatalf("wrong locks released")
	}
}
