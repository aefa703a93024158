package ports

import (
	"context"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// DocumentSource reads user-authored documents. It is append-only from our side.
type DocumentSource interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Document, error)
	CountDocuments(ctx context.Context, userID string) (int, error)
}

// CandidateSource returns the fixed prompt pool.
type CandidateSource interface {
	ListCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// GenerationOracle produces AI artifacts. Its output is untrusted.
type GenerationOracle interface {
	GenerateInsight(ctx context.Context, docs []domain.Document) (domain.Insight, error)
}

// ArtifactStore persists cache entries.
type ArtifactStore interface {
	GetArtifact(ctx context.Context, userID string, artifactType domain.ArtifactType) (*domain.Artifact, error)
	UpsertArtifact(ctx context.Context, artifact *domain.Artifact) error
	InvalidateArtifact(ctx context.Context, userID string, artifactType domain.ArtifactType, artifactID string) error
}

// TrackerStore persists scheduling state. TryAcquire must be atomic across processes.
type TrackerStore interface {
	GetTracker(ctx context.Context, userID string) (*domain.TrackerState, error)
	TryAcquire(ctx context.Context, userID string, now time.Time, staleBefore time.Time) (*domain.TrackerState, bool, error)
	ReleaseSuccess(ctx context.Context, userID string, now time.Time, docCountMark int, strategy domain.GenerationStrategy) error
	ReleaseFailure(ctx context.Context, userID string) error
	ReleaseStale(ctx context.Context, staleBefore time.Time) (int, error)
}

// PromptStore persists prompts assigned to a user. AssignPrompts replaces the
// user's outstanding set.
type PromptStore interface {
	AssignPrompts(ctx context.Context, userID string, prompts []domain.PromptAssignment) error
	ResolvePrompt(ctx context.Context, userID, promptID string, at time.Time) error
	ListOutstanding(ctx context.Context, userID string) ([]domain.PromptAssignment, error)
	CountOutstanding(ctx context.Context, userID string) (int, error)
}

// TriggerQueue carries generation triggers from request handlers to workers.
type TriggerQueue interface {
	PublishTrigger(ctx context.Context, trigger domain.Trigger) error
	SubscribeTriggers(ctx context.Context, handler func(context.Context, domain.Trigger) error) error
}

// GenerationObserver receives scheduling and cache telemetry.
type GenerationObserver interface {
	ObserveTrigger(event domain.TriggerEvent, outcome string)
	StartGeneration()
	FinishGeneration(duration time.Duration, err error)
	ObserveCacheLookup(artifactType domain.ArtifactType, result string)
	ObserveRank(duration time.Duration, returned int)
}
