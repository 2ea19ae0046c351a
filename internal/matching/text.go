package matching

import (
	"strings"
	"unicode"

	prose "github.com/jdkato/prose/v2"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"to": {}, "was": {}, "were": {}, "will": {}, "with": {}, "this": {},
	"these": {}, "those": {}, "shall": {}, "must": {}, "may": {}, "all": {},
	"any": {}, "other": {}, "such": {}, "not": {}, "under": {}, "per": {},
	"including": {}, "required": {}, "provide": {}, "services": {},
	"service": {}, "contractor": {}, "government": {},
}

// tokenize lowercases, strips punctuation, drops stop words and short
// tokens. prose handles tokenization; tagging and extraction are disabled
// since only the token stream matters here.
func tokenize(text string, minLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if minLen <= 0 {
		minLen = 3
	}

	var raw []string
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		raw = strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
	} else {
		for _, tok := range doc.Tokens() {
			raw = append(raw, tok.Text)
		}
	}

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimFunc(t, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len(t) < minLen {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}

	return tokens
}

// Tokenize exposes the pipeline's tokenization for other packages that need
// to query the same token space, notably keyword search.
func Tokenize(text string, minLen int) []string {
	return tokenize(text, minLen)
}

// termFrequencies returns relative frequency per token.
func termFrequencies(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	total := float64(len(tokens))
	for t := range counts {
		counts[t] /= total
	}
	return counts
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
