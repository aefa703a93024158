package relevance

import (
	"strings"
	"unicode"
)

const DefaultMinTokenLength = 3

// Normalizer turns raw text into a sequence of terms.
type Normalizer struct {
	minLen    int
	stopwords map[string]struct{}
	reducer   Reducer
}

func NewNormalizer(reducer Reducer, minTokenLength int) *Normalizer {
	if reducer == nil {
		reducer = SuffixReducer{}
	}
	if minTokenLength <= 0 {
		minTokenLength = DefaultMinTokenLength
	}
	return &Normalizer{
		minLen:    minTokenLength,
		stopwords: stopwordSet,
		reducer:   reducer,
	}
}

// Normalize lowercases text, splits it on non-alphanumeric runs, drops short
// tokens and stopwords and reduces what is left. It may return an empty slice.
func (n *Normalizer) Normalize(text string) []string {
	tokens := splitAlphaNum(text)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) < n.minLen {
			continue
		}
		if _, stop := n.stopwords[token]; stop {
			continue
		}
		term := n.reducer.Reduce(token)
		if term == "" {
			continue
		}
		out = append(out, term)
	}
	return out
}

func (n *Normalizer) Strategy() string {
	return n.reducer.Name()
}

func splitAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
