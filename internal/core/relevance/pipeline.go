package relevance

import (
	"errors"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// Pipeline wires normalization, IDF, vectorization and ranking for one request.
type Pipeline struct {
	normalizer *Normalizer
}

func NewPipeline(normalizer *Normalizer) *Pipeline {
	if normalizer == nil {
		normalizer = NewNormalizer(nil, 0)
	}
	return &Pipeline{normalizer: normalizer}
}

func (p *Pipeline) Normalizer() *Normalizer {
	return p.normalizer
}

// Rank ranks pool against the combined text of queryTexts. The IDF map is built
// from exactly the candidates and query documents passed in. Query text with no
// usable terms fails before the pool is looked at.
func (p *Pipeline) Rank(queryTexts []string, pool []domain.Candidate, k, maxPerTheme int) ([]domain.ScoredCandidate, error) {
	req := p.prepare(queryTexts, pool)
	if len(req.queryTerms) == 0 {
		return nil, domain.WrapError(domain.ErrVectorization, "normalize query documents", errors.New("no usable terms in recent documents"))
	}
	if len(pool) == 0 {
		return []domain.ScoredCandidate{}, nil
	}

	idf := BuildIDF(req.corpus)
	query := Vectorize(req.queryTerms, idf)
	vectors := make([]CandidateVector, len(pool))
	for i, candidate := range pool {
		vectors[i] = CandidateVector{
			Candidate: candidate,
			Vector:    Vectorize(req.candidateTerms[i], idf),
		}
	}
	return Rank(query, vectors, k, maxPerTheme)
}

type prepared struct {
	corpus         Corpus
	queryTerms     []string
	candidateTerms [][]string
}

// prepare normalizes every query document and candidate once. Each of them is a
// corpus entry, including those that normalize to nothing, so N is the number of
// texts compared.
func (p *Pipeline) prepare(queryTexts []string, pool []domain.Candidate) prepared {
	out := prepared{
		corpus:         make(Corpus, 0, len(queryTexts)+len(pool)),
		queryTerms:     make([]string, 0, 64),
		candidateTerms: make([][]string, len(pool)),
	}
	for _, text := range queryTexts {
		terms := p.normalizer.Normalize(text)
		out.corpus = append(out.corpus, terms)
		out.queryTerms = append(out.queryTerms, terms...)
	}
	for i, candidate := range pool {
		out.candidateTerms[i] = p.normalizer.Normalize(candidate.IndexText())
		out.corpus = append(out.corpus, out.candidateTerms[i])
	}
	return out
}
