package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/internal/sanitizer"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/pkg/logger"
)

const defaultSearchK = 10

type SearchHandler struct {
	matcher   *search.Matcher
	sanitizer *sanitizer.Sanitizer
	language  string
}

func NewSearchHandler(matcher *search.Matcher, san *sanitizer.Sanitizer, language string) *SearchHandler {
	return &SearchHandler{
		matcher:   matcher,
		sanitizer: san,
		language:  language,
	}
}

// Search returns raw chunk-level results for a job description under
// the requested strategy. This is the debugging surface under the
// candidate-level /match endpoint.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req struct {
		JobDescription string `json:"job_description"`
		K              int    `json:"k"`
		SearchType     string `json:"search_type"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.K == 0 {
		req.K = defaultSearchK
	}
	if req.K < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "k must be positive",
		})
	}
	if req.SearchType == "" {
		req.SearchType = search.StrategyHybrid
	}

	cleanJD := h.sanitizer.Clean(req.JobDescription, h.language)

	start := time.Now()
	results, err := h.matcher.Query(c.Context(), cleanJD, req.K, req.SearchType)
	if err != nil {
		if errors.Is(err, search.ErrInvalidStrategy) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid search_type, expected hybrid, vector or keyword",
			})
		}
		if errors.Is(err, search.ErrNotIndexed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No resumes indexed yet, index resumes first",
			})
		}
		logger.Error("Search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}
	metrics.SearchDuration.WithLabelValues(req.SearchType).Observe(time.Since(start).Seconds())

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}
