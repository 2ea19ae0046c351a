// Package evaluation replays labeled opportunity/company pairs through the
// matching pipeline and reports how well the computed confidence agrees with
// the labels.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// Matcher scores a single pair. Satisfied by matching.Orchestrator.
type Matcher interface {
	ComputeMatch(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (*models.MatchResult, error)
}

type EvaluationDataset struct {
	Items []DatasetItem `json:"items"`
}

// DatasetItem is one labeled pair. ExpectedConfidence is the analyst's
// judgment: HIGH, MEDIUM, LOW, or NONE.
type DatasetItem struct {
	Opportunity        models.Opportunity     `json:"opportunity"`
	Profile            models.CompanyProfile  `json:"profile"`
	ExpectedConfidence models.ConfidenceLevel `json:"expected_confidence"`
	Label              string                 `json:"label,omitempty"`
}

type ItemResult struct {
	Label              string                 `json:"label,omitempty"`
	OpportunityID      string                 `json:"opportunity_id"`
	CompanyID          string                 `json:"company_id"`
	TotalScore         float64                `json:"total_score"`
	Confidence         models.ConfidenceLevel `json:"confidence"`
	ExpectedConfidence models.ConfidenceLevel `json:"expected_confidence"`
	Exact              bool                   `json:"exact"`
	WithinOne          bool                   `json:"within_one"`
}

type EvaluationReport struct {
	TotalPairs         int                            `json:"total_pairs"`
	Evaluated          int                            `json:"evaluated"`
	Errors             int                            `json:"errors"`
	ExactAgreement     int                            `json:"exact_agreement"`
	WithinOneAgreement int                            `json:"within_one_agreement"`
	ExactRate          float64                        `json:"exact_rate"`
	WithinOneRate      float64                        `json:"within_one_rate"`
	AvgScore           float64                        `json:"avg_score"`
	Distribution       map[models.ConfidenceLevel]int `json:"distribution"`
	Items              []ItemResult                   `json:"items"`
}

type Evaluator struct {
	matcher Matcher
}

func NewEvaluator(matcher Matcher) *Evaluator {
	return &Evaluator{matcher: matcher}
}

// Run scores every labeled pair and compares computed confidence against the
// label. Pair failures are counted and skipped so one bad record cannot sink
// a dataset run.
func (e *Evaluator) Run(ctx context.Context, dataset *EvaluationDataset) (*EvaluationReport, error) {
	if dataset == nil || len(dataset.Items) == 0 {
		return nil, fmt.Errorf("empty evaluation dataset")
	}

	logger.Info("Running dataset evaluation", zap.Int("pairs", len(dataset.Items)))

	report := &EvaluationReport{
		TotalPairs:   len(dataset.Items),
		Distribution: make(map[models.ConfidenceLevel]int),
	}

	var totalScore float64

	for i := range dataset.Items {
		item := &dataset.Items[i]

		result, err := e.matcher.ComputeMatch(ctx, &item.Opportunity, &item.Profile)
		if err != nil {
			report.Errors++
			logger.Error("Failed to evaluate pair",
				zap.String("label", item.Label),
				zap.Error(err),
			)
			continue
		}

		report.Evaluated++
		totalScore += result.TotalScore
		report.Distribution[result.ConfidenceLevel]++

		distance := result.ConfidenceLevel.Rank() - item.ExpectedConfidence.Rank()
		if distance < 0 {
			distance = -distance
		}

		itemResult := ItemResult{
			Label:              item.Label,
			OpportunityID:      item.Opportunity.NoticeID,
			CompanyID:          item.Profile.CompanyID,
			TotalScore:         result.TotalScore,
			Confidence:         result.ConfidenceLevel,
			ExpectedConfidence: item.ExpectedConfidence,
			Exact:              distance == 0,
			WithinOne:          distance <= 1,
		}
		if itemResult.Exact {
			report.ExactAgreement++
		}
		if itemResult.WithinOne {
			report.WithinOneAgreement++
		}
		report.Items = append(report.Items, itemResult)
	}

	if report.Evaluated > 0 {
		report.ExactRate = float64(report.ExactAgreement) / float64(report.Evaluated)
		report.WithinOneRate = float64(report.WithinOneAgreement) / float64(report.Evaluated)
		report.AvgScore = totalScore / float64(report.Evaluated)
	}

	logger.Info("Dataset evaluation completed",
		zap.Int("evaluated", report.Evaluated),
		zap.Int("errors", report.Errors),
		zap.Float64("exact_rate", report.ExactRate),
		zap.Float64("within_one_rate", report.WithinOneRate),
	)

	return report, nil
}

func LoadDatasetFromJSON(jsonData []byte) (*EvaluationDataset, error) {
	var dataset EvaluationDataset
	if err := json.Unmarshal(jsonData, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return &dataset, nil
}

// FormatReport renders a human-readable summary for CLI and log output.
func FormatReport(report *EvaluationReport) string {
	return fmt.Sprintf(`
Matching Evaluation Report
==========================

Labeled Pairs: %d (evaluated %d, errors %d)

Confidence Distribution:
- HIGH:   %d
- MEDIUM: %d
- LOW:    %d
- NONE:   %d

Agreement With Labels:
- Exact:      %d (%.1f%%)
- Within One: %d (%.1f%%)

Average Total Score: %.3f
`,
		report.TotalPairs, report.Evaluated, report.Errors,
		report.Distribution[models.ConfidenceHigh],
		report.Distribution[models.ConfidenceMedium],
		report.Distribution[models.ConfidenceLow],
		report.Distribution[models.ConfidenceNone],
		report.ExactAgreement, report.ExactRate*100,
		report.WithinOneAgreement, report.WithinOneRate*100,
		report.AvgScore,
	)
}
