package domain

import "time"

type ArtifactType string

const (
	ArtifactInsights ArtifactType = "insights"
	ArtifactPrompts  ArtifactType = "prompts"
)

func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactInsights, ArtifactPrompts:
		return true
	default:
		return false
	}
}

// Artifact is a cached, expensive-to-produce result keyed by (UserID, Type).
// Valid only ever transitions from true to false for a given ID.
type Artifact struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Type           ArtifactType `json:"type"`
	Content        string       `json:"content"`
	GeneratedAt    time.Time    `json:"generated_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
	SourceDocCount int          `json:"source_doc_count"`
	Valid          bool         `json:"valid"`
}

func (a *Artifact) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

type ArtifactResult struct {
	Type        ArtifactType `json:"type"`
	Content     string       `json:"content"`
	FromCache   bool         `json:"from_cache"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Insight is the structured artifact returned by the generation oracle.
type Insight struct {
	Summary string   `json:"summary" validate:"required,min=20,max=4000"`
	Themes  []string `json:"themes" validate:"required,min=1,max=8,dive,required,max=64"`
}

type PromptSet struct {
	Prompts []ScoredCandidate `json:"prompts"`
}

// CachePolicy holds the TTL and milestone gate of the artifact cache.
type CachePolicy struct {
	TTL            time.Duration `json:"ttl"`
	MilestoneEvery int           `json:"milestone_every"`
}
