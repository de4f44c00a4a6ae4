package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/matching"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/pkg/logger"
)

type MatchHandler struct {
	service *matching.Service
}

func NewMatchHandler(service *matching.Service) *MatchHandler {
	return &MatchHandler{
		service: service,
	}
}

// Match runs the full candidate-matching pipeline for a job
// description and returns the ranked top-k candidates with their
// qualitative reports.
func (h *MatchHandler) Match(c *fiber.Ctx) error {
	var req struct {
		JobDescription string `json:"job_description"`
		K              int    `json:"k"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.K == 0 {
		req.K = 5
	}

	results, err := h.service.FindCandidates(c.Context(), req.JobDescription, req.K)
	if err != nil {
		if errors.Is(err, matching.ErrInvalidK) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "k must be between 1 and 20",
			})
		}
		if errors.Is(err, search.ErrNotIndexed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No resumes indexed yet, index resumes first",
			})
		}
		logger.Error("Match failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Match failed",
		})
	}

	return c.JSON(fiber.Map{
		"matches": results,
		"count":   len(results),
	})
}
