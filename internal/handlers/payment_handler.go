package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/services"
)

type PaymentHandler struct {
	service paymentApplicationService
}

type paymentApplicationService interface {
	ListPackages(ctx context.Context) ([]models.Package, error)
	Initiate(ctx context.Context, userID int64, packageID int64, payerRef string) (*models.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, userID int64, transactionID string) (*models.PaymentIntent, error)
	ListTransactions(ctx context.Context, userID int64) ([]models.PaymentIntent, error)
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type initiatePaymentRequest struct {
	PackageID   int64  `json:"package_id" validate:"required,gt=0"`
	PhoneNumber string `json:"phone_number" validate:"required,min=9,max=15"`
}

func (h *PaymentHandler) ListPackages(c *fiber.Ctx) error {
	packages, err := h.service.ListPackages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load packages"})
	}
	return c.JSON(fiber.Map{"packages": packages})
}

func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validateRequest(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	intent, err := h.service.Initiate(c.Context(), userID, req.PackageID, strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"transaction_id": intent.TransactionID,
		"status":         intent.Status,
	})
}

func (h *PaymentHandler) ConfirmPayment(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	transactionID := strings.TrimSpace(c.Params("transactionId"))
	if transactionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction id"})
	}

	intent, err := h.service.ConfirmPayment(c.Context(), userID, transactionID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return c.JSON(fiber.Map{"transaction": intent})
}

func (h *PaymentHandler) ListTransactions(c *fiber.Ctx) error {
	userID, err := parseAuthUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	transactions, err := h.service.ListTransactions(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to load transactions"})
	}

	return c.JSON(fiber.Map{"transactions": transactions})
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrPackageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	case errors.Is(err, services.ErrIntentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	case errors.Is(err, services.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusBadGateway).
			JSON(fiber.Map{"error": "Payment provider unavailable, please retry"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
