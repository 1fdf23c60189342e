package embedder

// defaultStopwords returns the English stopword set excluded from the
// lexical vocabulary.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"from", "has", "have", "he", "her", "his", "i", "in", "is", "it",
		"its", "me", "my", "no", "not", "of", "on", "or", "our", "she",
		"so", "that", "the", "their", "them", "they", "this", "to", "was",
		"we", "were", "what", "when", "where", "which", "who", "will",
		"with", "you", "your",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var stopwordSet = defaultStopwords()

// IsStopword reports whether term is in the default English stopword set.
func IsStopword(term string) bool {
	_, ok := stopwordSet[term]
	return ok
}
