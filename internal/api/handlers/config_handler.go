package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/internal/storage/sqlite"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// ConfigHandler administers weight configurations. Writes go to SQLite and
// immediately invalidate the provider's cache for the affected scope.
type ConfigHandler struct {
	provider *matchcfg.Provider
	db       *sqlite.Client
}

func NewConfigHandler(provider *matchcfg.Provider, db *sqlite.Client) *ConfigHandler {
	return &ConfigHandler{
		provider: provider,
		db:       db,
	}
}

// GetConfiguration returns the configuration a tenant would resolve right
// now, defaults included.
func (h *ConfigHandler) GetConfiguration(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	return c.JSON(h.provider.Resolve(tenantID))
}

// UpsertConfiguration stores a global or tenant configuration. The store
// bumps the version on every write.
func (h *ConfigHandler) UpsertConfiguration(c *fiber.Ctx) error {
	var req struct {
		TenantID         string                      `json:"tenant_id"`
		Weights          map[string]float64          `json:"weights"`
		ConfidenceLevels models.ConfidenceThresholds `json:"confidence_levels"`
		AlgorithmParams  map[string]float64          `json:"algorithm_params"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Weights) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "weights are required",
		})
	}
	for name, w := range req.Weights {
		if w < 0 || w > 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "weight out of range [0,1]: " + name,
			})
		}
	}
	t := req.ConfidenceLevels
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low > 0) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "confidence_levels must satisfy high > medium > low > 0",
		})
	}

	scope := "global"
	if req.TenantID != "" {
		scope = "tenant_" + req.TenantID
	}

	cfg := &models.WeightConfiguration{
		Scope:            scope,
		Weights:          req.Weights,
		ConfidenceLevels: req.ConfidenceLevels,
		AlgorithmParams:  req.AlgorithmParams,
	}

	if err := h.db.UpsertWeightConfiguration(cfg); err != nil {
		logger.Error("Failed to store weight configuration",
			zap.String("scope", scope),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store configuration",
		})
	}

	h.provider.Invalidate(req.TenantID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"scope": scope,
	})
}

// InvalidateCache drops cached configurations; a tenant_id narrows it to one
// scope, otherwise everything goes.
func (h *ConfigHandler) InvalidateCache(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		h.provider.InvalidateAll()
	} else {
		h.provider.Invalidate(tenantID)
	}

	return c.JSON(fiber.Map{
		"status": "invalidated",
	})
}
