package relevance

import (
	"math"
	"sort"
)

// Vector is a sparse term -> weight map.
type Vector map[string]float64

// Vectorize weights each term by raw count times idf. Terms missing from idf are
// dropped.
func Vectorize(terms []string, idf map[string]float64) Vector {
	tf := make(map[string]int, len(terms))
	for _, term := range terms {
		tf[term]++
	}
	out := make(Vector, len(tf))
	for term, count := range tf {
		weight, ok := idf[term]
		if !ok {
			continue
		}
		out[term] = float64(count) * weight
	}
	return out
}

// Terms returns the vector's dimensions in lexical order. Sums are taken in this
// order so repeated calls produce bit-identical scores.
func (v Vector) Terms() []string {
	terms := make([]string, 0, len(v))
	for term := range v {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (v Vector) Norm() float64 {
	var sum float64
	for _, term := range v.Terms() {
		w := v[term]
		sum += w * w
	}
	return math.Sqrt(sum)
}

func (v Vector) Empty() bool {
	return len(v) == 0 || v.Norm() == 0
}

// Cosine returns the cosine similarity of a and b clamped to [0,1]. A zero
// magnitude vector scores 0 against anything.
func Cosine(a, b Vector) float64 {
	normA := a.Norm()
	normB := b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for _, term := range a.Terms() {
		if wb, ok := b[term]; ok {
			dot += a[term] * wb
		}
	}
	sim := dot / (normA * normB)
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}
