package domain

import "time"

// Document is one unit of user-authored text. It is owned by the document source
// and never mutated here.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Candidate struct {
	ID          string `json:"id"`
	DisplayText string `json:"display_text"`
	Theme       string `json:"theme"`
	KeywordText string `json:"keyword_text"`
}

// IndexText is the text a candidate is vectorized from.
func (c Candidate) IndexText() string {
	if c.KeywordText == "" {
		return c.DisplayText
	}
	return c.DisplayText + " " + c.KeywordText
}

type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

type RankOptions struct {
	K           int `json:"k"`
	MaxPerTheme int `json:"max_per_theme"`
}

type PromptAssignment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CandidateID string     `json:"candidate_id"`
	Text        string     `json:"text"`
	Theme       string     `json:"theme"`
	Score       float64    `json:"score"`
	AssignedAt  time.Time  `json:"assigned_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}
