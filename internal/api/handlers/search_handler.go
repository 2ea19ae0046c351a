package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/search"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

type SearchHandler struct {
	service *search.Service
}

func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search serves GET /search?q=...&mode=hybrid&top_k=20.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	mode := c.Query("mode", search.ModeHybrid)

	topK := 0
	if v := c.Query("top_k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	results, err := h.service.Search(c.Context(), query, mode, topK)
	if err != nil {
		logger.Error("Search failed",
			zap.String("mode", mode),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"mode":    mode,
		"count":   len(results),
		"results": results,
	})
}
