package relevance

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Reducer maps an inflected token to the term used as a vector dimension.
// Implementations are heuristics; they may over- or under-reduce.
type Reducer interface {
	Reduce(token string) string
	Name() string
}

const (
	StrategySuffix   = "suffix"
	StrategySnowball = "snowball"
)

func NewReducer(strategy string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategySuffix:
		return SuffixReducer{}, nil
	case StrategySnowball:
		return SnowballReducer{}, nil
	default:
		return nil, fmt.Errorf("unknown normalizer strategy %q", strategy)
	}
}

// SuffixReducer strips a handful of common English inflections.
type SuffixReducer struct{}

const minStemLength = 3

var suffixRules = []struct {
	suffix      string
	replacement string
	undouble    bool
}{
	{suffix: "sses", replacement: "ss"},
	{suffix: "ies", replacement: "y"},
	{suffix: "ingly", replacement: "", undouble: true},
	{suffix: "edly", replacement: "", undouble: true},
	{suffix: "ing", replacement: "", undouble: true},
	{suffix: "ed", replacement: "", undouble: true},
	{suffix: "ness", replacement: ""},
	{suffix: "ful", replacement: ""},
	{suffix: "ly", replacement: ""},
	{suffix: "s", replacement: ""},
}

func (SuffixReducer) Name() string { return StrategySuffix }

func (SuffixReducer) Reduce(token string) string {
	for _, rule := range suffixRules {
		if !strings.HasSuffix(token, rule.suffix) {
			continue
		}
		if rule.suffix == "s" && !stripPluralS(token) {
			return token
		}
		stem := token[:len(token)-len(rule.suffix)] + rule.replacement
		if len(stem) < minStemLength {
			return token
		}
		if rule.undouble {
			stem = undoubleConsonant(stem)
		}
		return stem
	}
	return token
}

func stripPluralS(token string) bool {
	for _, keep := range []string{"ss", "us", "is"} {
		if strings.HasSuffix(token, keep) {
			return false
		}
	}
	return true
}

// undoubleConsonant turns "runn" into "run" but leaves "stress", "fall" and "buzz".
func undoubleConsonant(stem string) string {
	n := len(stem)
	if n < 2 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'l', 's', 'z', 'a', 'e', 'i', 'o', 'u':
		return stem
	}
	return stem[:n-1]
}

// SnowballReducer applies the English Snowball (Porter2) stemmer.
type SnowballReducer struct{}

func (SnowballReducer) Name() string { return StrategySnowball }

func (SnowballReducer) Reduce(token string) string {
	return english.Stem(token, false)
}
