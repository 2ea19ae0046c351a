package search

import (
	"math"
	"testing"
)

func TestCombineDualPresenceBoost(t *testing.T) {
	c := NewCombiner()

	semantic := []Candidate{{ID: "A", Score: 0.8}}
	keyword := []Candidate{{ID: "A", Score: 0.6}}

	results := c.Combine(semantic, keyword)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	// (0.7*0.8 + 0.3*0.6) * 1.2
	want := 0.888
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}
	if len(results[0].Sources) != 2 {
		t.Errorf("sources = %v, want both channels", results[0].Sources)
	}
}

func TestCombineSingleChannelNoBoost(t *testing.T) {
	c := NewCombiner()

	results := c.Combine([]Candidate{{ID: "A", Score: 0.8}}, nil)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	want := 0.7 * 0.8
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}
}

func TestCombineCapsAtOne(t *testing.T) {
	c := NewCombiner()

	results := c.Combine(
		[]Candidate{{ID: "A", Score: 1.0}},
		[]Candidate{{ID: "A", Score: 1.0}},
	)

	if results[0].Score != 1.0 {
		t.Errorf("score = %v, want clamp at 1.0", results[0].Score)
	}
}

func TestCombineDualPresenceOutranksSingleChannel(t *testing.T) {
	c := NewCombiner()

	// B's weighted score (0.7*0.9 = 0.63) exceeds A's unboosted weighted
	// score (0.7*0.6 + 0.3*0.6 = 0.6), but A's dual presence wins.
	semantic := []Candidate{{ID: "B", Score: 0.9}, {ID: "A", Score: 0.6}}
	keyword := []Candidate{{ID: "A", Score: 0.6}}

	results := c.Combine(semantic, keyword)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].ID != "A" {
		t.Errorf("top result = %s (%v), want A", results[0].ID, results[0].Score)
	}
}

func TestCombineOrderingAndMerge(t *testing.T) {
	c := NewCombiner()

	semantic := []Candidate{
		{ID: "A", Score: 0.9},
		{ID: "B", Score: 0.5},
	}
	keyword := []Candidate{
		{ID: "B", Score: 0.9},
		{ID: "C", Score: 0.8},
	}

	results := c.Combine(semantic, keyword)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results out of order at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}

	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.ID] {
			t.Errorf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestCombineEmptyChannels(t *testing.T) {
	c := NewCombiner()
	if results := c.Combine(nil, nil); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}
