package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxJobDescriptionLength int
	MaxUploadSize           int
	AllowedContentTypes     []string
	Logger                  *zap.Logger
}

// Middleware enforces content types and request body limits before
// handlers run. Domain validation (k range, strategy names) stays in
// the services so API and non-API callers share it.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxJobDescriptionLength == 0 {
		cfg.MaxJobDescriptionLength = 20000
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxUploadSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Request body exceeds maximum size",
				})
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/search") || strings.Contains(path, "/api/v1/match") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			jd, ok := req["job_description"].(string)
			if !ok || strings.TrimSpace(jd) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "job_description is required and must be a string",
				})
			}

			if len(jd) > cfg.MaxJobDescriptionLength {
				if cfg.Logger != nil {
					cfg.Logger.Warn("Oversized job description rejected",
						zap.String("ip", c.IP()),
						zap.Int("length", len(jd)),
					)
				}
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "job_description exceeds maximum length",
				})
			}
		}

		return c.Next()
	}
}
