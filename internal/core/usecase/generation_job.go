package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
)

const defaultOracleTimeout = 30 * time.Second

// ArtifactGenerator produces artifact content and persists it. It owns no
// locking; callers hold the tracker lock around it.
type ArtifactGenerator struct {
	docs     ports.DocumentSource
	oracle   ports.GenerationOracle
	ranker   *RankPromptsUseCase
	store    ports.ArtifactStore
	prompts  ports.PromptStore
	validate *validator.Validate
	cache    domain.CachePolicy
	policy   domain.SchedulerPolicy
	now      func() time.Time
}

func NewArtifactGenerator(
	docs ports.DocumentSource,
	oracle ports.GenerationOracle,
	ranker *RankPromptsUseCase,
	store ports.ArtifactStore,
	prompts ports.PromptStore,
	cache domain.CachePolicy,
	policy domain.SchedulerPolicy,
) *ArtifactGenerator {
	if policy.OracleTimeout <= 0 {
		policy.OracleTimeout = defaultOracleTimeout
	}
	if policy.RecentDocuments <= 0 {
		policy.RecentDocuments = defaultRecentDocuments
	}
	if policy.Strategy == "" {
		policy.Strategy = domain.StrategyRanker
	}
	return &ArtifactGenerator{
		docs:     docs,
		oracle:   oracle,
		ranker:   ranker,
		store:    store,
		prompts:  prompts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cache:    cache,
		policy:   policy,
		now:      time.Now,
	}
}

// Produce builds the content of one artifact type from docs.
func (g *ArtifactGenerator) Produce(ctx context.Context, userID string, artifactType domain.ArtifactType, docs []domain.Document) (string, []domain.ScoredCandidate, error) {
	if needed := g.policy.MinSourceDocuments; needed > 0 && len(docs) < needed {
		return "", nil, domain.NewInsufficientContent("produce "+string(artifactType), len(docs), needed)
	}
	docs = mostRecent(docs, g.policy.RecentDocuments)

	switch artifactType {
	case domain.ArtifactInsights:
		insight, err := g.generateInsight(ctx, docs)
		if err != nil {
			return "", nil, err
		}
		content, err := encodeContent(insight)
		return content, nil, err
	case domain.ArtifactPrompts:
		picks, err := g.ranker.RankDocuments(ctx, docs, g.policy.Rank)
		if err != nil {
			return "", nil, err
		}
		content, err := encodeContent(domain.PromptSet{Prompts: picks})
		return content, picks, err
	default:
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "produce artifact", fmt.Errorf("unknown artifact type %q", artifactType))
	}
}

// Run executes a full background generation for userID and returns the document
// count the tracker mark should advance to.
func (g *ArtifactGenerator) Run(ctx context.Context, userID string) (int, domain.GenerationStrategy, error) {
	count, err := g.docs.CountDocuments(ctx, userID)
	if err != nil {
		return 0, "", fmt.Errorf("count documents: %w", err)
	}
	if needed := g.policy.MinSourceDocuments; needed > 0 && count < needed {
		return count, "", domain.NewInsufficientContent("generation job", count, needed)
	}
	docs, err := g.docs.ListRecent(ctx, userID, g.policy.RecentDocuments)
	if err != nil {
		return count, "", fmt.Errorf("list recent documents: %w", err)
	}

	strategy := g.policy.Strategy
	if g.oracle == nil {
		strategy = domain.StrategyRanker
	}

	// Nothing is written until the oracle output has been validated.
	var insightContent string
	if strategy == domain.StrategyHybrid {
		insight, err := g.generateInsight(ctx, docs)
		if err != nil {
			return count, strategy, err
		}
		if insightContent, err = encodeContent(insight); err != nil {
			return count, strategy, err
		}
	}

	picks, err := g.ranker.RankDocuments(ctx, docs, g.policy.Rank)
	if err != nil {
		return count, strategy, err
	}
	promptContent, err := encodeContent(domain.PromptSet{Prompts: picks})
	if err != nil {
		return count, strategy, err
	}

	if insightContent != "" {
		g.Store(ctx, userID, domain.ArtifactInsights, insightContent, count)
	}
	g.Store(ctx, userID, domain.ArtifactPrompts, promptContent, count)
	if err := g.assign(ctx, userID, picks); err != nil {
		return count, strategy, err
	}
	return count, strategy, nil
}

// Store writes a fresh cache entry. Write failures are logged and reported as
// nil so callers still serve the content they produced.
func (g *ArtifactGenerator) Store(ctx context.Context, userID string, artifactType domain.ArtifactType, content string, docCount int) *domain.Artifact {
	now := g.now().UTC()
	artifact := &domain.Artifact{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           artifactType,
		Content:        content,
		GeneratedAt:    now,
		ExpiresAt:      now.Add(g.cache.TTL),
		SourceDocCount: docCount,
		Valid:          true,
	}
	if err := g.store.UpsertArtifact(ctx, artifact); err != nil {
		err = domain.WrapError(domain.ErrCacheWrite, "upsert artifact", err)
		slog.Error("artifact_cache_write_failed",
			"user_id", userID,
			"type", string(artifactType),
			"error", err.Error(),
		)
		return nil
	}
	return artifact
}

func (g *ArtifactGenerator) generateInsight(ctx context.Context, docs []domain.Document) (domain.Insight, error) {
	if g.oracle == nil {
		return domain.Insight{}, domain.WrapError(domain.ErrGeneration, "generate insight", errors.New("generation oracle is not configured"))
	}
	oracleCtx, cancel := context.WithTimeout(ctx, g.policy.OracleTimeout)
	defer cancel()

	insight, err := g.oracle.GenerateInsight(oracleCtx, docs)
	if err != nil {
		return domain.Insight{}, domain.WrapError(domain.ErrGeneration, "generate insight", err)
	}
	if err := g.validate.Struct(insight); err != nil {
		return domain.Insight{}, domain.WrapError(domain.ErrGeneration, "validate insight", err)
	}
	return insight, nil
}

func (g *ArtifactGenerator) assign(ctx context.Context, userID string, picks []domain.ScoredCandidate) error {
	if g.prompts == nil || len(picks) == 0 {
		return nil
	}
	now := g.now().UTC()
	assignments := make([]domain.PromptAssignment, 0, len(picks))
	for _, pick := range picks {
		assignments = append(assignments, domain.PromptAssignment{
			ID:          uuid.NewString(),
			UserID:      userID,
			CandidateID: pick.Candidate.ID,
			Text:        pick.Candidate.DisplayText,
			Theme:       pick.Candidate.Theme,
			Score:       pick.Score,
			AssignedAt:  now,
		})
	}
	if err := g.prompts.AssignPrompts(ctx, userID, assignments); err != nil {
		return fmt.Errorf("assign prompts: %w", err)
	}
	return nil
}

// mostRecent returns up to limit documents, newest first.
func mostRecent(docs []domain.Document, limit int) []domain.Document {
	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(a, b domain.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
