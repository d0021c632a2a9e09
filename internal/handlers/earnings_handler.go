package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/services"
)

type EarningsHandler struct {
	service earningsApplicationService
}

type earningsApplicationService interface {
	ListForTutor(ctx context.Context, tutorID int64) ([]models.EarningsEntry, error)
	Summary(ctx context.Context, tutorID int64, start, end time.Time) (*models.EarningsSummary, error)
}

func NewEarningsHandler(service *services.EarningsService) *EarningsHandler {
	return &EarningsHandler{service: service}
}

func (h *EarningsHandler) ListEarnings(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	tutorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	earnings, err := h.service.ListForTutor(c.Context(), tutorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load earnings"})
	}

	return c.JSON(fiber.Map{"earnings": earnings})
}

func (h *EarningsHandler) GetSummary(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	tutorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	// Defaults to the trailing 30 days when no range is given.
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if raw := strings.TrimSpace(c.Query("start")); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "start must be a YYYY-MM-DD date"})
		}
	}
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "end must be a YYYY-MM-DD date"})
		}
		end = end.AddDate(0, 0, 1)
	}

	summary, err := h.service.Summary(c.Context(), tutorID, start, end)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "start must not be after end"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load earnings summary"})
	}

	return c.JSON(fiber.Map{"summary": summary})
}
