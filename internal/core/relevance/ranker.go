package relevance

import (
	"errors"
	"sort"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

type CandidateVector struct {
	Candidate domain.Candidate
	Vector    Vector
}

// Rank scores every candidate against query and returns at most k of them,
// best first, with no theme appearing more than maxPerTheme times. Equal scores
// are ordered by candidate id. maxPerTheme <= 0 disables the theme cap.
//
// The list is never padded: when the cap rejects too many candidates the result
// is shorter than k.
func Rank(query Vector, candidates []CandidateVector, k, maxPerTheme int) ([]domain.ScoredCandidate, error) {
	if query.Empty() {
		return nil, domain.WrapError(domain.ErrVectorization, "rank candidates", errors.New("query vector is empty"))
	}
	if len(candidates) == 0 || k <= 0 {
		return []domain.ScoredCandidate{}, nil
	}

	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, domain.ScoredCandidate{
			Candidate: c.Candidate,
			Score:     Cosine(query, c.Vector),
		})
	}
	SortScored(scored)

	return SelectDiverse(scored, k, maxPerTheme), nil
}

// SortScored orders by score descending, then candidate id ascending.
func SortScored(scored []domain.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.ID < scored[j].Candidate.ID
	})
}

// SelectDiverse walks an already sorted list and greedily accepts candidates
// whose theme is still under the cap.
func SelectDiverse(sorted []domain.ScoredCandidate, k, maxPerTheme int) []domain.ScoredCandidate {
	if k > len(sorted) {
		k = len(sorted)
	}
	out := make([]domain.ScoredCandidate, 0, k)
	perTheme := make(map[string]int, k)
	for _, candidate := range sorted {
		if len(out) >= k {
			break
		}
		theme := candidate.Candidate.Theme
		if maxPerTheme > 0 && perTheme[theme] >= maxPerTheme {
			continue
		}
		perTheme[theme]++
		out = append(out, candidate)
	}
	return out
}
