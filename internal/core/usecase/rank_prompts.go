package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/relevance"
)

const (
	defaultRankK           = 3
	defaultMaxPerTheme     = 1
	defaultRecentDocuments = 10
)

type RankPromptsUseCase struct {
	docs       ports.DocumentSource
	candidates ports.CandidateSource
	pipeline   *relevance.Pipeline
	defaults   domain.RankOptions
	recent     int
	observer   ports.GenerationObserver
}

func NewRankPromptsUseCase(
	docs ports.DocumentSource,
	candidates ports.CandidateSource,
	pipeline *relevance.Pipeline,
	defaults domain.RankOptions,
	recentDocuments int,
	observer ports.GenerationObserver,
) *RankPromptsUseCase {
	if pipeline == nil {
		pipeline = relevance.NewPipeline(nil)
	}
	if defaults.K <= 0 {
		defaults.K = defaultRankK
	}
	if defaults.MaxPerTheme <= 0 {
		defaults.MaxPerTheme = defaultMaxPerTheme
	}
	if recentDocuments <= 0 {
		recentDocuments = defaultRecentDocuments
	}
	return &RankPromptsUseCase{
		docs:       docs,
		candidates: candidates,
		pipeline:   pipeline,
		defaults:   defaults,
		recent:     recentDocuments,
		observer:   observerOrNoop(observer),
	}
}

// Rank scores pool against queryDocs. The IDF space is built from exactly these
// documents and candidates.
func (uc *RankPromptsUseCase) Rank(
	_ context.Context,
	queryDocs []domain.Document,
	pool []domain.Candidate,
	opts domain.RankOptions,
) ([]domain.ScoredCandidate, error) {
	opts = uc.withDefaults(opts)
	start := time.Now()

	texts := make([]string, 0, len(queryDocs))
	for _, doc := range queryDocs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		texts = append(texts, doc.Text)
	}

	scored, err := uc.pipeline.Rank(texts, pool, opts.K, opts.MaxPerTheme)
	if err != nil {
		return nil, err
	}
	uc.observer.ObserveRank(time.Since(start), len(scored))
	return scored, nil
}

// RankForUser ranks the candidate pool against the user's most recent documents.
func (uc *RankPromptsUseCase) RankForUser(ctx context.Context, userID string, opts domain.RankOptions) ([]domain.ScoredCandidate, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rank for user", fmt.Errorf("user_id is required"))
	}

	docs, err := uc.docs.ListRecent(ctx, userID, uc.recent)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.NewInsufficientContent("rank for user", 0, 1)
	}

	return uc.RankDocuments(ctx, docs, opts)
}

// RankDocuments ranks the configured candidate pool against docs.
func (uc *RankPromptsUseCase) RankDocuments(ctx context.Context, docs []domain.Document, opts domain.RankOptions) ([]domain.ScoredCandidate, error) {
	pool, err := uc.candidates.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return uc.Rank(ctx, docs, pool, opts)
}

func (uc *RankPromptsUseCase) withDefaults(opts domain.RankOptions) domain.RankOptions {
	if opts.K <= 0 {
		opts.K = uc.defaults.K
	}
	if opts.MaxPerTheme <= 0 {
		opts.MaxPerTheme = uc.defaults.MaxPerTheme
	}
	return opts
}
