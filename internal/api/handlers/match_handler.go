package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/matching"
	"github.com/tjaddison/govbizai-matching/internal/storage/sqlite"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

type MatchHandler struct {
	orchestrator *matching.Orchestrator
	db           *sqlite.Client
}

func NewMatchHandler(orchestrator *matching.Orchestrator, db *sqlite.Client) *MatchHandler {
	return &MatchHandler{
		orchestrator: orchestrator,
		db:           db,
	}
}

// ComputeMatch scores one opportunity/company pair on demand.
func (h *MatchHandler) ComputeMatch(c *fiber.Ctx) error {
	var req struct {
		OpportunityID string `json:"opportunity_id"`
		CompanyID     string `json:"company_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse match request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.OpportunityID == "" || req.CompanyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "opportunity_id and company_id are required",
		})
	}

	opp, err := h.db.GetOpportunity(req.OpportunityID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Opportunity not found",
		})
	}

	profile, err := h.db.GetCompanyProfile(req.CompanyID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Company profile not found",
		})
	}

	result, err := h.orchestrator.ComputeMatch(c.Context(), opp, profile)
	if err != nil {
		if errors.Is(err, matching.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Failed to compute match",
			zap.String("opportunity_id", req.OpportunityID),
			zap.String("company_id", req.CompanyID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute match",
		})
	}

	return c.JSON(result)
}

// GetMatch returns a previously computed match result.
func (h *MatchHandler) GetMatch(c *fiber.Ctx) error {
	companyID := c.Params("companyID")
	opportunityID := c.Params("opportunityID")

	result, err := h.db.GetMatchResult(companyID, opportunityID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Match not found",
		})
	}

	return c.JSON(result)
}

// ListMatches returns a company's stored matches, best first.
func (h *MatchHandler) ListMatches(c *fiber.Ctx) error {
	companyID := c.Params("companyID")
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "companyID is required",
		})
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	matches, err := h.db.ListMatchesForCompany(companyID, limit)
	if err != nil {
		logger.Error("Failed to list matches",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list matches",
		})
	}

	return c.JSON(fiber.Map{
		"company_id": companyID,
		"matches":    matches,
	})
}
