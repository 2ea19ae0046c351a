package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

type stubMatcher struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]bool
}

func (m *stubMatcher) ComputeMatch(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (*models.MatchResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.failOn[profile.CompanyID] {
		return nil, errors.New("scoring failed")
	}

	score := 0.1 * float64(len(profile.CompanyID))
	return &models.MatchResult{
		OpportunityID: opp.NoticeID,
		CompanyID:     profile.CompanyID,
		TotalScore:    score,
	}, nil
}

func profiles(ids ...string) []models.CompanyProfile {
	out := make([]models.CompanyProfile, len(ids))
	for i, id := range ids {
		out[i] = models.CompanyProfile{CompanyID: id, TenantID: "acme"}
	}
	return out
}

func TestMatchAllScoresEveryProfile(t *testing.T) {
	matcher := &stubMatcher{}
	c := NewCoordinator(matcher, 2)

	opp := &models.Opportunity{NoticeID: "OPP-1"}

	var progressCalls int
	var lastProgress Progress
	summary, err := c.MatchAll(context.Background(), opp, profiles("a", "bb", "ccc"), func(p Progress) {
		progressCalls++
		lastProgress = p
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Scored != 3 || summary.Failed != 0 {
		t.Errorf("scored=%d failed=%d, want 3/0", summary.Scored, summary.Failed)
	}
	if matcher.calls != 3 {
		t.Errorf("matcher calls = %d, want 3", matcher.calls)
	}
	if summary.RunID == "" {
		t.Error("expected a run id")
	}

	// Sorted best first: ccc (0.3), bb (0.2), a (0.1).
	if summary.Results[0].CompanyID != "ccc" || summary.Results[2].CompanyID != "a" {
		t.Errorf("results not sorted by score: %v", summary.Results)
	}

	if progressCalls != 4 {
		t.Errorf("progress calls = %d, want 3 pair updates plus final", progressCalls)
	}
	if !lastProgress.Done || lastProgress.Completed != 3 {
		t.Errorf("final progress = %+v", lastProgress)
	}
}

func TestMatchAllCountsFailures(t *testing.T) {
	matcher := &stubMatcher{failOn: map[string]bool{"bb": true}}
	c := NewCoordinator(matcher, 4)

	summary, err := c.MatchAll(context.Background(), &models.Opportunity{NoticeID: "OPP-1"}, profiles("a", "bb", "ccc"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Scored != 2 || summary.Failed != 1 {
		t.Errorf("scored=%d failed=%d, want 2/1", summary.Scored, summary.Failed)
	}
}

func TestMatchAllRequiresOpportunity(t *testing.T) {
	c := NewCoordinator(&stubMatcher{}, 1)

	if _, err := c.MatchAll(context.Background(), nil, profiles("a"), nil); err == nil {
		t.Error("expected error for nil opportunity")
	}
	if _, err := c.MatchAll(context.Background(), &models.Opportunity{}, profiles("a"), nil); err == nil {
		t.Error("expected error for missing notice id")
	}
}

func TestMatchAllAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(&stubMatcher{}, 2)
	if _, err := c.MatchAll(ctx, &models.Opportunity{NoticeID: "OPP-1"}, profiles("a", "bb"), nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}
