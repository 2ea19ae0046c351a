package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/cache/redis"
	"github.com/tjaddison/govbizai-matching/internal/indexing"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/internal/storage/sqlite"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// EntityHandler ingests opportunities and company profiles: persist to
// SQLite, then index into the vector store. Indexing failures leave the
// record queryable by keyword; the response reports both outcomes.
type EntityHandler struct {
	db      *sqlite.Client
	indexer *indexing.Indexer
	cache   *redis.Client
}

func NewEntityHandler(db *sqlite.Client, indexer *indexing.Indexer, cache *redis.Client) *EntityHandler {
	return &EntityHandler{
		db:      db,
		indexer: indexer,
		cache:   cache,
	}
}

func (h *EntityHandler) UpsertOpportunity(c *fiber.Ctx) error {
	var opp models.Opportunity
	if err := c.BodyParser(&opp); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if opp.NoticeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "notice_id is required",
		})
	}

	if err := h.db.UpsertOpportunity(&opp); err != nil {
		logger.Error("Failed to store opportunity",
			zap.String("notice_id", opp.NoticeID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store opportunity",
		})
	}

	indexed := 0
	var indexErr string
	if h.indexer != nil {
		n, err := h.indexer.IndexOpportunity(c.Context(), &opp)
		if err != nil {
			logger.Warn("Failed to index opportunity",
				zap.String("notice_id", opp.NoticeID),
				zap.Error(err),
			)
			indexErr = err.Error()
		}
		indexed = n
	}

	resp := fiber.Map{
		"notice_id":        opp.NoticeID,
		"indexed_sections": indexed,
	}
	if indexErr != "" {
		resp["index_error"] = indexErr
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *EntityHandler) GetOpportunity(c *fiber.Ctx) error {
	opp, err := h.db.GetOpportunity(c.Params("noticeID"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Opportunity not found",
		})
	}
	return c.JSON(opp)
}

func (h *EntityHandler) UpsertCompanyProfile(c *fiber.Ctx) error {
	var profile models.CompanyProfile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if profile.CompanyID == "" || profile.TenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "company_id and tenant_id are required",
		})
	}

	if err := h.db.UpsertCompanyProfile(&profile); err != nil {
		logger.Error("Failed to store company profile",
			zap.String("company_id", profile.CompanyID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store company profile",
		})
	}

	// Stored matches were computed against the old profile text.
	if h.cache != nil {
		if err := h.cache.InvalidateCompanyMatches(c.Context(), profile.CompanyID); err != nil {
			logger.Debug("Failed to invalidate cached matches",
				zap.String("company_id", profile.CompanyID),
				zap.Error(err),
			)
		}
	}

	indexed := 0
	var indexErr string
	if h.indexer != nil {
		n, err := h.indexer.IndexCompanyProfile(c.Context(), &profile)
		if err != nil {
			logger.Warn("Failed to index company profile",
				zap.String("company_id", profile.CompanyID),
				zap.Error(err),
			)
			indexErr = err.Error()
		}
		indexed = n
	}

	resp := fiber.Map{
		"company_id":       profile.CompanyID,
		"indexed_sections": indexed,
	}
	if indexErr != "" {
		resp["index_error"] = indexErr
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *EntityHandler) GetCompanyProfile(c *fiber.Ctx) error {
	profile, err := h.db.GetCompanyProfile(c.Params("companyID"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Company profile not found",
		})
	}
	return c.JSON(profile)
}
