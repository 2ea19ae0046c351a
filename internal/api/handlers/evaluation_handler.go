package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/evaluation"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

type EvaluationHandler struct {
	evaluator *evaluation.Evaluator
}

func NewEvaluationHandler(evaluator *evaluation.Evaluator) *EvaluationHandler {
	return &EvaluationHandler{evaluator: evaluator}
}

// RunEvaluation replays a labeled dataset through the live pipeline and
// returns the agreement report.
func (h *EvaluationHandler) RunEvaluation(c *fiber.Ctx) error {
	dataset, err := evaluation.LoadDatasetFromJSON(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid dataset: " + err.Error(),
		})
	}

	report, err := h.evaluator.Run(c.Context(), dataset)
	if err != nil {
		logger.Error("Evaluation run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Evaluation run failed",
		})
	}

	return c.JSON(report)
}
