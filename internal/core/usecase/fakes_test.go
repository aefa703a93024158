package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

var testPool = []domain.Candidate{
	{ID: "stress-1", DisplayText: "What helps you manage stress?", Theme: "stress", KeywordText: "stress overwhelmed deadlines pressure work"},
	{ID: "stress-2", DisplayText: "When did pressure feel lighter this week?", Theme: "stress", KeywordText: "stress pressure relief"},
	{ID: "gratitude-1", DisplayText: "What are you grateful for?", Theme: "gratitude", KeywordText: "grateful thankful appreciation"},
	{ID: "work-1", DisplayText: "What part of work gave you energy?", Theme: "work", KeywordText: "work project colleagues deadlines"},
}

type docSourceFake struct {
	mu       sync.Mutex
	docs     []domain.Document
	listErr  error
	countErr error
}

func (f *docSourceFake) add(userID string, texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, text := range texts {
		n := len(f.docs)
		f.docs = append(f.docs, domain.Document{
			ID:        fmt.Sprintf("doc-%d", n+1),
			UserID:    userID,
			Text:      text,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, n, 0, time.UTC),
		})
	}
}

func (f *docSourceFake) ListRecent(_ context.Context, userID string, limit int) ([]domain.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for i := len(f.docs) - 1; i >= 0; i-- {
		if f.docs[i].UserID != userID {
			continue
		}
		out = append(out, f.docs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *docSourceFake) CountDocuments(_ context.Context, userID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, doc := range f.docs {
		if doc.UserID == userID {
			n++
		}
	}
	return n, nil
}

type candidateSourceFake struct {
	pool []domain.Candidate
	err  error
}

func (f *candidateSourceFake) ListCandidates(context.Context) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

type oracleFake struct {
	insight domain.Insight
	err     error
	block   chan struct{}
	calls   atomic.Int32
}

func (f *oracleFake) GenerateInsight(ctx context.Context, _ []domain.Document) (domain.Insight, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.Insight{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Insight{}, f.err
	}
	return f.insight, nil
}

func validInsight() domain.Insight {
	return domain.Insight{
		Summary: "You wrote mostly about deadlines at work and how they weigh on you.",
		Themes:  []string{"stress", "work"},
	}
}

type artifactStoreFake struct {
	mu          sync.Mutex
	entries     map[string]*domain.Artifact
	invalidated []string
	upserts     int
	getErr      error
	upsertErr   error
}

func newArtifactStoreFake() *artifactStoreFake {
	return &artifactStoreFake{entries: map[string]*domain.Artifact{}}
}

func artifactKey(userID string, artifactType domain.ArtifactType) string {
	return userID + "|" + string(artifactType)
}

func (f *artifactStoreFake) put(a domain.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[artifactKey(a.UserID, a.Type)] = &a
}

func (f *artifactStoreFake) get(userID string, artifactType domain.ArtifactType) *domain.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[artifactKey(userID, artifactType)]
	if !ok {
		return nil
	}
	copyEntry := *entry
	return &copyEntry
}

func (f *artifactStoreFake) GetArtifact(_ context.Context, userID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	entry := f.get(userID, artifactType)
	if entry == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get artifact", fmt.Errorf("%s/%s", userID, artifactType))
	}
	return entry, nil
}

func (f *artifactStoreFake) UpsertArtifact(_ context.Context, artifact *domain.Artifact) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	copyEntry := *artifact
	f.entries[artifactKey(artifact.UserID, artifact.Type)] = &copyEntry
	return nil
}

func (f *artifactStoreFake) InvalidateArtifact(_ context.Context, userID string, artifactType domain.ArtifactType, artifactID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, artifactID)
	if entry, ok := f.entries[artifactKey(userID, artifactType)]; ok && entry.ID == artifactID {
		entry.Valid = false
	}
	return nil
}

type trackerStoreFake struct {
	mu           sync.Mutex
	states       map[string]*domain.TrackerState
	acquireCalls int
	successes    int
	failures     int
	acquireErr   error
}

func newTrackerStoreFake() *trackerStoreFake {
	return &trackerStoreFake{states: map[string]*domain.TrackerState{}}
}

func (f *trackerStoreFake) set(state domain.TrackerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.UserID] = &state
}

func (f *trackerStoreFake) state(userID string) domain.TrackerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.states[userID]; ok {
		return *s
	}
	return domain.TrackerState{UserID: userID}
}

func (f *trackerStoreFake) GetTracker(_ context.Context, userID string) (*domain.TrackerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get tracker", fmt.Errorf("user %s", userID))
	}
	copyState := *s
	return &copyState, nil
}

func (f *trackerStoreFake) TryAcquire(_ context.Context, userID string, now, staleBefore time.Time) (*domain.TrackerState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCalls++
	if f.acquireErr != nil {
		return nil, false, f.acquireErr
	}
	s, ok := f.states[userID]
	if !ok {
		s = &domain.TrackerState{UserID: userID}
		f.states[userID] = s
	}
	if s.InFlight && s.LockAcquiredAt != nil && s.LockAcquiredAt.After(staleBefore) {
		return nil, false, nil
	}
	acquiredAt := now
	s.InFlight = true
	s.LockAcquiredAt = &acquiredAt
	copyState := *s
	return &copyState, true, nil
}

func (f *trackerStoreFake) ReleaseSuccess(_ context.Context, userID string, now time.Time, mark int, strategy domain.GenerationStrategy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
	s := f.states[userID]
	generatedAt := now
	s.InFlight = false
	s.LockAcquiredAt = nil
	s.LastGenerationAt = &generatedAt
	s.LastSourceDocCountMark = mark
	s.Strategy = strategy
	return nil
}

func (f *trackerStoreFake) ReleaseFailure(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	if s, ok := f.states[userID]; ok {
		s.InFlight = false
		s.LockAcquiredAt = nil
	}
	return nil
}

func (f *trackerStoreFake) ReleaseStale(_ context.Context, staleBefore time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := 0
	for _, s := range f.states {
		if s.InFlight && s.LockAcquiredAt != nil && !s.LockAcquiredAt.After(staleBefore) {
			s.InFlight = false
			s.LockAcquiredAt = nil
			released++
		}
	}
	return released, nil
}

type promptStoreFake struct {
	mu       sync.Mutex
	assigned []domain.PromptAssignment
}

func (f *promptStoreFake) AssignPrompts(_ context.Context, userID string, prompts []domain.PromptAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(prompts) == 0 {
		return nil
	}
	for i := range f.assigned {
		p := &f.assigned[i]
		if p.UserID == userID && p.ResolvedAt == nil {
			at := prompts[0].AssignedAt
			p.ResolvedAt = &at
		}
	}
	f.assigned = append(f.assigned, prompts...)
	return nil
}

func (f *promptStoreFake) ResolvePrompt(_ context.Context, userID, promptID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assigned {
		p := &f.assigned[i]
		if p.ID == promptID && p.UserID == userID && p.ResolvedAt == nil {
			resolvedAt := at
			p.ResolvedAt = &resolvedAt
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "resolve prompt", fmt.Errorf("prompt %s", promptID))
}

func (f *promptStoreFake) ListOutstanding(_ context.Context, userID string) ([]domain.PromptAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PromptAssignment
	for _, p := range f.assigned {
		if p.UserID == userID && p.ResolvedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *promptStoreFake) CountOutstanding(ctx context.Context, userID string) (int, error) {
	out, err := f.ListOutstanding(ctx, userID)
	return len(out), err
}

type queueFake struct {
	mu        sync.Mutex
	published []domain.Trigger
	err       error
}

func (f *queueFake) PublishTrigger(_ context.Context, trigger domain.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, trigger)
	return nil
}

func (f *queueFake) SubscribeTriggers(context.Context, func(context.Context, domain.Trigger) error) error {
	return nil
}

type observerFake struct {
	mu       sync.Mutex
	triggers map[string]int
	lookups  map[string]int
}

func newObserverFake() *observerFake {
	return &observerFake{triggers: map[string]int{}, lookups: map[string]int{}}
}

func (f *observerFake) ObserveTrigger(event domain.TriggerEvent, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers[string(event)+"/"+outcome]++
}

func (f *observerFake) StartGeneration() {}
func (f *observerFake) FinishGeneration(time.Duration, error) {}

func (f *observerFake) ObserveCacheLookup(artifactType domain.ArtifactType, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[string(artifactType)+"/"+result]++
}

func (f *observerFake) ObserveRank(time.Duration, int) {}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	docs      *docSourceFake
	oracle    *oracleFake
	artifacts *artifactStoreFake
	tracker   *trackerStoreFake
	prompts   *promptStoreFake
	observer  *observerFake
	clock     *fixedClock
	generator *ArtifactGenerator
	cache     *ArtifactCacheUseCase
	scheduler *SchedulerUseCase
}

func defaultTestPolicy() domain.SchedulerPolicy {
	return domain.SchedulerPolicy{
		Threshold:          3,
		Cooldown:           0,
		OracleTimeout:      time.Second,
		LockStaleAfter:     time.Minute,
		MinSourceDocuments: 1,
		RecentDocuments:    10,
		Strategy:           domain.StrategyHybrid,
		Rank:               domain.RankOptions{K: 3, MaxPerTheme: 1},
	}
}

// newHarness wires the use cases against in-memory fakes. A nil prompts store
// disables prompt assignment so outstanding prompts never block the gate.
func newHarness(policy domain.SchedulerPolicy, cachePolicy domain.CachePolicy, prompts *promptStoreFake) *harness {
	h := &harness{
		docs:      &docSourceFake{},
		oracle:    &oracleFake{insight: validInsight()},
		artifacts: newArtifactStoreFake(),
		tracker:   newTrackerStoreFake(),
		prompts:   prompts,
		observer:  newObserverFake(),
		clock:     &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	ranker := NewRankPromptsUseCase(h.docs, &candidateSourceFake{pool: testPool}, nil, policy.Rank, policy.RecentDocuments, h.observer)
	h.generator = NewArtifactGenerator(h.docs, h.oracle, ranker, h.artifacts, nil, cachePolicy, policy)
	h.generator.now = h.clock.Now

	h.cache = NewArtifactCacheUseCase(h.docs, h.artifacts, h.tracker, h.generator, cachePolicy, policy, h.observer)
	h.cache.now = h.clock.Now

	h.scheduler = NewSchedulerUseCase(h.docs, h.tracker, nil, h.generator, nil, policy, h.observer)
	h.scheduler.now = h.clock.Now

	if prompts != nil {
		h.generator.prompts = prompts
		h.scheduler.prompts = prompts
	}
	return h
}
