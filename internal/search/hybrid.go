package search

import "sort"

// Candidate is a scored document id from one retrieval channel, scores in
// [0,1].
type Candidate struct {
	ID    string
	Score float64
}

// RankedResult is a combined-channel ranking entry.
type RankedResult struct {
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	SemanticScore float64  `json:"semantic_score"`
	KeywordScore  float64  `json:"keyword_score"`
	Sources       []string `json:"sources"`
}

// Combiner merges semantic and keyword retrieval channels. Documents found
// by both channels get a multiplicative boost, so dual-presence always
// outranks the same weighted score from a single channel.
type Combiner struct {
	SemanticWeight    float64
	KeywordWeight     float64
	DualPresenceBoost float64
}

func NewCombiner() *Combiner {
	return &Combiner{
		SemanticWeight:    0.7,
		KeywordWeight:     0.3,
		DualPresenceBoost: 1.2,
	}
}

// Combine merges the two channels into a single ranking, highest combined
// score first, capped at 1.0. Ties preserve semantic-channel order.
func (c *Combiner) Combine(semantic, keyword []Candidate) []RankedResult {
	merged := make(map[string]*RankedResult, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for _, cand := range semantic {
		if _, ok := merged[cand.ID]; ok {
			continue
		}
		merged[cand.ID] = &RankedResult{
			ID:            cand.ID,
			SemanticScore: cand.Score,
			Sources:       []string{"semantic"},
		}
		order = append(order, cand.ID)
	}

	for _, cand := range keyword {
		if existing, ok := merged[cand.ID]; ok {
			existing.KeywordScore = cand.Score
			existing.Sources = append(existing.Sources, "keyword")
			continue
		}
		merged[cand.ID] = &RankedResult{
			ID:           cand.ID,
			KeywordScore: cand.Score,
			Sources:      []string{"keyword"},
		}
		order = append(order, cand.ID)
	}

	results := make([]RankedResult, 0, len(order))
	for _, id := range order {
		entry := merged[id]

		score := c.SemanticWeight*entry.SemanticScore + c.KeywordWeight*entry.KeywordScore
		if len(entry.Sources) == 2 {
			score *= c.DualPresenceBoost
		}
		if score > 1 {
			score = 1
		}
		entry.Score = score

		results = append(results, *entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}
