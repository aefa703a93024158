package relevance

import "math"

// Corpus is the set of term sequences one ranking call compares. It is built per
// call and must not be reused for a different set of documents.
type Corpus [][]string

// BuildIDF returns a smoothed inverse document frequency per term:
//
//	idf(t) = ln((N+1) / (df(t)+1)) + 1
//
// The result is strictly positive for every term present in the corpus.
func BuildIDF(corpus Corpus) map[string]float64 {
	docFreq := make(map[string]int, 64)
	for _, terms := range corpus {
		seen := make(map[string]struct{}, len(terms))
		for _, term := range terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log((n+1)/(float64(df)+1)) + 1
	}
	return idf
}
