package index

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from the keyword representation. Kept small on purpose;
// the keyword index is a fallback, not the primary ranking.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "has": {}, "have": {},
	"was": {}, "were": {}, "with": {}, "this": {}, "that": {}, "from": {},
	"they": {}, "will": {}, "would": {}, "there": {}, "their": {}, "what": {},
	"about": {}, "which": {}, "when": {}, "into": {}, "than": {}, "then": {},
	"them": {}, "these": {}, "some": {}, "been": {}, "also": {}, "its": {},
}

// deriveKeywords builds the keyword-searchable representation of a chunk at
// write time: lowercased alphanumeric tokens, short tokens and stopwords
// dropped, deduplicated and sorted.
func deriveKeywords(content string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
	}

	keywords := make([]string, 0, len(seen))
	for tok := range seen {
		keywords = append(keywords, tok)
	}
	sort.Strings(keywords)

	return keywords
}

// keywordScore returns the fraction of query keywords present in the chunk's
// keyword set, in [0, 1].
func keywordScore(queryKeywords, chunkKeywords []string) float64 {
	if len(queryKeywords) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(chunkKeywords))
	for _, kw := range chunkKeywords {
		set[kw] = struct{}{}
	}

	matched := 0
	for _, kw := range queryKeywords {
		if _, ok := set[kw]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(queryKeywords))
}
