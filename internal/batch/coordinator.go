// Package batch fans one opportunity out against many company profiles with
// bounded concurrency, reporting progress as pairs complete.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/metrics"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// Matcher scores a single pair. Satisfied by matching.Orchestrator.
type Matcher interface {
	ComputeMatch(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (*models.MatchResult, error)
}

// Progress is a point-in-time snapshot of a running batch.
type Progress struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Done      bool   `json:"done"`
}

// Summary is the final outcome of a batch run, results sorted by score
// descending.
type Summary struct {
	RunID         string               `json:"run_id"`
	OpportunityID string               `json:"opportunity_id"`
	Total         int                  `json:"total"`
	Scored        int                  `json:"scored"`
	Failed        int                  `json:"failed"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	Results       []models.MatchResult `json:"results"`
}

type Coordinator struct {
	matcher     Matcher
	concurrency int
}

func NewCoordinator(matcher Matcher, concurrency int) *Coordinator {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Coordinator{matcher: matcher, concurrency: concurrency}
}

// MatchAll scores the opportunity against every profile. Individual pair
// failures (invalid profiles, cancelled pairs) are counted, not fatal; the
// run only aborts when the parent context dies. onProgress, when non-nil, is
// called after every completed pair from a single goroutine.
func (c *Coordinator) MatchAll(ctx context.Context, opp *models.Opportunity, profiles []models.CompanyProfile, onProgress func(Progress)) (*Summary, error) {
	if opp == nil || opp.NoticeID == "" {
		return nil, fmt.Errorf("missing opportunity id")
	}

	runID := uuid.NewString()
	summary := &Summary{
		RunID:         runID,
		OpportunityID: opp.NoticeID,
		Total:         len(profiles),
		StartedAt:     time.Now().UTC(),
	}

	metrics.BatchRunsActive.Inc()
	defer metrics.BatchRunsActive.Dec()

	logger.Info("Batch match run started",
		zap.String("run_id", runID),
		zap.String("opportunity_id", opp.NoticeID),
		zap.Int("profiles", len(profiles)),
		zap.Int("concurrency", c.concurrency),
	)

	type outcome struct {
		result *models.MatchResult
		err    error
	}

	outcomes := make(chan outcome, c.concurrency)
	sem := make(chan struct{}, c.concurrency)

	var wg sync.WaitGroup
	go func() {
		for i := range profiles {
			if ctx.Err() != nil {
				break
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(profile *models.CompanyProfile) {
				defer wg.Done()
				defer func() { <-sem }()
				result, err := c.matcher.ComputeMatch(ctx, opp, profile)
				outcomes <- outcome{result: result, err: err}
			}(&profiles[i])
		}
		wg.Wait()
		close(outcomes)
	}()

	completed := 0
	for out := range outcomes {
		completed++
		if out.err != nil {
			summary.Failed++
			logger.Warn("Batch pair failed",
				zap.String("run_id", runID),
				zap.Error(out.err),
			)
		} else {
			summary.Scored++
			summary.Results = append(summary.Results, *out.result)
		}

		if onProgress != nil {
			onProgress(Progress{
				RunID:     runID,
				Total:     summary.Total,
				Completed: completed,
				Failed:    summary.Failed,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch run %s aborted: %w", runID, err)
	}

	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].TotalScore > summary.Results[j].TotalScore
	})
	summary.FinishedAt = time.Now().UTC()

	if onProgress != nil {
		onProgress(Progress{
			RunID:     runID,
			Total:     summary.Total,
			Completed: completed,
			Failed:    summary.Failed,
			Done:      true,
		})
	}

	logger.Info("Batch match run finished",
		zap.String("run_id", runID),
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}
