package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/paulmbugua/Online-Tutor-App/internal/services"
)

type stubPaymentService struct {
	packages      []models.Package
	packagesErr   error
	initResult    *models.PaymentIntent
	initErr       error
	confirmResult *models.PaymentIntent
	confirmErr    error
	listResult    []models.PaymentIntent
	listErr       error

	lastUserID        int64
	lastPackageID     int64
	lastPayerRef      string
	lastTransactionID string
}

func (s *stubPaymentService) ListPackages(_ context.Context) ([]models.Package, error) {
	return s.packages, s.packagesErr
}

func (s *stubPaymentService) Initiate(_ context.Context, userID int64, packageID int64, payerRef string) (*models.PaymentIntent, error) {
	s.lastUserID = userID
	s.lastPackageID = packageID
	s.lastPayerRef = payerRef
	return s.initResult, s.initErr
}

func (s *stubPaymentService) ConfirmPayment(_ context.Context, userID int64, transactionID string) (*models.PaymentIntent, error) {
	s.lastUserID = userID
	s.lastTransactionID = transactionID
	return s.confirmResult, s.confirmErr
}

func (s *stubPaymentService) ListTransactions(_ context.Context, userID int64) ([]models.PaymentIntent, error) {
	s.lastUserID = userID
	return s.listResult, s.listErr
}

func newPaymentTestApp(handler *PaymentHandler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", "student")
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/payments/packages", handler.ListPackages)
	app.Post("/api/v1/payments/initiate", handler.InitiatePayment)
	app.Get("/api/v1/payments/transactions", handler.ListTransactions)
	app.Get("/api/v1/payments/:transactionId/status", handler.ConfirmPayment)
	return app
}

func TestInitiatePaymentReturnsAccepted(t *testing.T) {
	service := &stubPaymentService{
		initResult: &models.PaymentIntent{
			TransactionID: "ws_CO_010920261200001",
			Status:        models.PaymentPending,
		},
	}
	handler := &PaymentHandler{service: service}
	app := newPaymentTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{
		"package_id": 2,
		"phone_number": "0712345678"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 {
		t.Fatalf("expected user id 42, got %d", service.lastUserID)
	}
	if service.lastPackageID != 2 {
		t.Fatalf("expected package id 2, got %d", service.lastPackageID)
	}
	if service.lastPayerRef != "0712345678" {
		t.Fatalf("unexpected payer ref %q", service.lastPayerRef)
	}
}

func TestInitiatePaymentRejectsMissingPhone(t *testing.T) {
	service := &stubPaymentService{}
	handler := &PaymentHandler{service: service}
	app := newPaymentTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{
		"package_id": 2
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestInitiatePaymentMapsUnknownPackage(t *testing.T) {
	service := &stubPaymentService{initErr: services.ErrPackageNotFound}
	handler := &PaymentHandler{service: service}
	app := newPaymentTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{
		"package_id": 999,
		"phone_number": "0712345678"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestConfirmPaymentRejectsForeignIntent(t *testing.T) {
	service := &stubPaymentService{confirmErr: services.ErrForbidden}
	handler := &PaymentHandler{service: service}
	app := newPaymentTestApp(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ws_CO_x/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastTransactionID != "ws_CO_x" {
		t.Fatalf("unexpected transaction id %q", service.lastTransactionID)
	}
}

func TestListPackagesReturnsCatalog(t *testing.T) {
	service := &stubPaymentService{
		packages: []models.Package{{ID: 1, Credits: 100, Price: 100}},
	}
	handler := &PaymentHandler{service: service}
	app := newPaymentTestApp(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/packages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
