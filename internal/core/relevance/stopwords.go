package relevance

var stopwordSet = func() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
		"are", "aren", "as", "at", "be", "because", "been", "before", "being", "below", "between",
		"both", "but", "by", "can", "cannot", "could", "couldn", "did", "didn", "do", "does", "doesn",
		"doing", "don", "down", "during", "each", "even", "ever", "every", "few", "for", "from",
		"further", "get", "got", "had", "hadn", "has", "hasn", "have", "haven", "having", "he", "her",
		"here", "hers", "herself", "him", "himself", "his", "how", "however", "i", "if", "in", "into",
		"is", "isn", "it", "its", "itself", "just", "let", "like", "lot", "made", "make", "many", "may",
		"me", "might", "more", "most", "much", "must", "mustn", "my", "myself", "never", "no", "nor",
		"not", "now", "of", "off", "on", "once", "one", "only", "or", "other", "ought", "our", "ours",
		"ourselves", "out", "over", "own", "really", "same", "shall", "shan", "she", "should",
		"shouldn", "since", "so", "some", "still", "such", "than", "that", "the", "their", "theirs",
		"them", "themselves", "then", "there", "these", "they", "thing", "things", "this", "those",
		"though", "through", "to", "today", "too", "under", "until", "up", "upon", "us", "very",
		"was", "wasn", "we", "well", "were", "weren", "what", "when", "where", "which", "while",
		"who", "whom", "why", "will", "with", "within", "without", "won", "would", "wouldn", "yet",
		"you", "your", "yours", "yourself", "yourselves", "yeah", "okay", "really", "something",
		"anything", "everything", "nothing", "someone", "anyone", "everyone", "maybe", "quite",
		"rather", "already", "always", "around", "back", "way", "day", "ll", "ve", "re",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// IsStopword reports whether token is dropped by the normalizer.
func IsStopword(token string) bool {
	_, ok := stopwordSet[token]
	return ok
}
