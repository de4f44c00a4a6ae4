package handlers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/ingestion"
	"github.com/talentmatch/backend/internal/loader"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/pkg/logger"
)

type ResumeHandler struct {
	processor *ingestion.Processor
	uploadDir string
}

func NewResumeHandler(processor *ingestion.Processor, uploadDir string) *ResumeHandler {
	return &ResumeHandler{
		processor: processor,
		uploadDir: uploadDir,
	}
}

// UploadResume accepts a multipart resume upload and indexes it for
// the given candidate. The file is staged to a temp path for the
// loader and removed afterwards.
func (h *ResumeHandler) UploadResume(c *fiber.Ctx) error {
	candidateID := c.FormValue("candidate_id")
	if candidateID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "candidate_id is required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	tempPath := filepath.Join(h.uploadDir, uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, tempPath); err != nil {
		logger.Error("Failed to save upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store uploaded file",
		})
	}
	defer os.Remove(tempPath)

	count, err := h.processor.ProcessResume(c.Context(), tempPath, candidateID, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported file format, expected pdf, docx or doc",
			})
		}
		if errors.Is(err, loader.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Uploaded file could not be read",
			})
		}
		logger.Error("Failed to process resume", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process resume",
		})
	}

	return c.JSON(fiber.Map{
		"candidate_id":   candidateID,
		"filename":       fileHeader.Filename,
		"indexed_chunks": count,
	})
}

// GetResume returns the sanitized resume text reconstructed from the
// candidate's indexed chunks.
func (h *ResumeHandler) GetResume(c *fiber.Ctx) error {
	candidateID := c.Params("candidate_id")

	content, err := h.processor.SanitizedResume(c.Context(), candidateID)
	if err != nil {
		if errors.Is(err, search.ErrCandidateNotFound) || errors.Is(err, search.ErrNotIndexed) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No resume indexed for this candidate",
			})
		}
		logger.Error("Failed to fetch resume", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch resume",
		})
	}

	return c.JSON(fiber.Map{
		"candidate_id": candidateID,
		"content":      content,
	})
}

// DeleteResume removes a candidate's chunks from the index.
func (h *ResumeHandler) DeleteResume(c *fiber.Ctx) error {
	candidateID := c.Params("candidate_id")

	count, err := h.processor.DeleteResume(c.Context(), candidateID)
	if err != nil {
		if errors.Is(err, search.ErrCandidateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No resume indexed for this candidate",
			})
		}
		if errors.Is(err, search.ErrNotIndexed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No resumes have been indexed yet",
			})
		}
		logger.Error("Failed to delete resume", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete resume",
		})
	}

	return c.JSON(fiber.Map{
		"candidate_id":   candidateID,
		"removed_chunks": count,
	})
}

// ListCandidates returns indexed candidate ids with chunk counts.
func (h *ResumeHandler) ListCandidates(c *fiber.Ctx) error {
	candidates, err := h.processor.Candidates(c.Context())
	if err != nil {
		if errors.Is(err, search.ErrNotIndexed) {
			return c.JSON(fiber.Map{"candidates": fiber.Map{}, "count": 0})
		}
		logger.Error("Failed to list candidates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list candidates",
		})
	}

	return c.JSON(fiber.Map{
		"candidates": candidates,
		"count":      len(candidates),
	})
}
