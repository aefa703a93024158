package ports

import (
	"context"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// PromptRanker is the inbound contract for foreground prompt ranking.
type PromptRanker interface {
	Rank(ctx context.Context, queryDocs []domain.Document, pool []domain.Candidate, opts domain.RankOptions) ([]domain.ScoredCandidate, error)
	RankDocuments(ctx context.Context, docs []domain.Document, opts domain.RankOptions) ([]domain.ScoredCandidate, error)
	RankForUser(ctx context.Context, userID string, opts domain.RankOptions) ([]domain.ScoredCandidate, error)
}

// ArtifactService serves cached artifacts and regenerates them when the cache policy allows.
type ArtifactService interface {
	GetOrGenerate(ctx context.Context, userID string, artifactType domain.ArtifactType, currentDocs []domain.Document) (*domain.ArtifactResult, error)
	Refresh(ctx context.Context, userID string, artifactType domain.ArtifactType, currentDocs []domain.Document) (*domain.ArtifactResult, error)
}

// GenerationScheduler decides whether background generation runs for a user.
type GenerationScheduler interface {
	MaybeTriggerBackgroundGeneration(ctx context.Context, userID string, event domain.TriggerEvent)
	HandleTrigger(ctx context.Context, trigger domain.Trigger) (*domain.GenerationOutcome, error)
	Reconcile(ctx context.Context) (int, error)
}

// PromptResolver marks served prompts as answered.
type PromptResolver interface {
	ResolvePrompt(ctx context.Context, userID, promptID string) error
	ListOutstanding(ctx context.Context, userID string) ([]domain.PromptAssignment, error)
}
