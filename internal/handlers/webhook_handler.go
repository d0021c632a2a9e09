package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmbugua/Online-Tutor-App/internal/services"
)

// WebhookHandler terminates provider callbacks. Both providers redeliver on
// non-2xx responses, so handlers acknowledge anything that is not worth
// retrying (malformed payloads, unknown references) and reserve error
// statuses for transient failures.
type WebhookHandler struct {
	payments   paymentReconciler
	attendance attendanceRecorder
}

type paymentReconciler interface {
	Reconcile(ctx context.Context, result services.PaymentResult) error
}

type attendanceRecorder interface {
	RecordEvent(ctx context.Context, input services.AttendanceEventInput) error
}

func NewWebhookHandler(payments *services.PaymentService, attendance *services.AttendanceService) *WebhookHandler {
	return &WebhookHandler{payments: payments, attendance: attendance}
}

// stkCallbackRequest mirrors the M-Pesa STK push result envelope.
type stkCallbackRequest struct {
	Body struct {
		StkCallback struct {
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (h *WebhookHandler) PaymentCallback(c *fiber.Ctx) error {
	var req stkCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		// Acknowledge so the provider stops redelivering a payload we can
		// never parse.
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	callback := req.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	result := services.PaymentResult{
		TransactionID: callback.CheckoutRequestID,
		Succeeded:     callback.ResultCode == 0,
	}
	for _, item := range callback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if receipt, ok := item.Value.(string); ok {
				result.ProviderRef = receipt
			}
		}
	}

	if err := h.payments.Reconcile(c.Context(), result); err != nil {
		switch {
		case errors.Is(err, services.ErrIntentNotFound), errors.Is(err, services.ErrInvalidInput):
			// Not ours, or unusable; redelivery cannot fix it.
			return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
		default:
			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"ResultCode": 1, "ResultDesc": "Internal error"})
		}
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// meetingEventRequest mirrors the meeting provider's participant webhook.
type meetingEventRequest struct {
	Event   string `json:"event"`
	Payload struct {
		Object struct {
			ID          string `json:"id"`
			Participant struct {
				UserID   string `json:"user_id"`
				UserName string `json:"user_name"`
			} `json:"participant"`
		} `json:"object"`
	} `json:"payload"`
	EventTS int64 `json:"event_ts"`
}

var meetingEventTypes = map[string]string{
	"meeting.participant_joined": "joined",
	"meeting.participant_left":   "left",
	"meeting.ended":              "ended",
}

func (h *WebhookHandler) MeetingCallback(c *fiber.Ctx) error {
	var req meetingEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	eventType, ok := meetingEventTypes[strings.TrimSpace(req.Event)]
	if !ok {
		// Unsubscribed event type; acknowledge without recording.
		return c.SendStatus(fiber.StatusNoContent)
	}

	occurredAt := time.Unix(0, req.EventTS*int64(time.Millisecond)).UTC()
	if req.EventTS == 0 {
		occurredAt = time.Now().UTC()
	}

	err := h.attendance.RecordEvent(c.Context(), services.AttendanceEventInput{
		MeetingRef:    req.Payload.Object.ID,
		ParticipantID: req.Payload.Object.Participant.UserID,
		EventType:     eventType,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event payload"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to record event"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
