package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
)

type TutorHandler struct {
	tutorRepo *repository.TutorRepository
}

func NewTutorHandler(tutorRepo *repository.TutorRepository) *TutorHandler {
	return &TutorHandler{tutorRepo: tutorRepo}
}

type tutorOnboardingRequest struct {
	DisplayName string           `json:"display_name" validate:"required,min=2,max=100"`
	Bio         *string          `json:"bio" validate:"omitempty,max=2000"`
	Rates       map[string]int64 `json:"rates" validate:"required,min=1,dive,keys,oneof=privateSession groupSession lecture workshop,endkeys,gt=0"`
}

func (h *TutorHandler) CompleteOnboarding(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != "tutor" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	tutorID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req tutorOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validateRequest(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	for sessionType := range req.Rates {
		if !models.ValidSessionType(sessionType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown session type in rates"})
		}
	}

	profile, err := h.tutorRepo.UpdateOnboarding(c.Context(), tutorID, repository.TutorOnboardingInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Rates:       req.Rates,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update tutor profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *TutorHandler) GetProfile(c *fiber.Ctx) error {
	tutorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || tutorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	profile, err := h.tutorRepo.GetByUserID(c.Context(), tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load tutor profile"})
	}

	rates, err := h.tutorRepo.ListRates(c.Context(), tutorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load tutor rates"})
	}

	return c.JSON(fiber.Map{"profile": profile, "rates": rates})
}
