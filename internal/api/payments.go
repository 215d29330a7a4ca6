package api

import (
	"errors"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultGateway в пути означает шлюз по умолчанию
const defaultGateway = "default"

type createOrderRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
}

type verifyRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	OrderID       string    `json:"orderId"`
	Success       *bool     `json:"success"`
}

func gatewayParam(c *fiber.Ctx) string {
	gw := c.Params("gateway")
	if gw == defaultGateway {
		return ""
	}
	return gw
}

func (h *Handler) CreatePaymentOrder(c *fiber.Ctx) error {
	var body createOrderRequest
	if err := c.BodyParser(&body); err != nil || body.AppointmentID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "appointmentId is required")
	}

	// Оплатить можно только свою запись
	if _, err := h.booking.Get(c.UserContext(), requester(c), body.AppointmentID); err != nil {
		return err
	}

	handle, err := h.payments.CreateOrder(c.UserContext(), body.AppointmentID, gatewayParam(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, handle)
}

func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	var body verifyRequest
	if err := c.BodyParser(&body); err != nil || body.AppointmentID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "appointmentId is required")
	}

	if _, err := h.booking.Get(c.UserContext(), requester(c), body.AppointmentID); err != nil {
		return err
	}

	settlement, err := h.payments.Verify(c.UserContext(), body.AppointmentID, model.PaymentEvidence{
		Gateway: gatewayParam(c),
		OrderID: body.OrderID,
		Success: body.Success,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, settlement)
}

// Webhook принимает уведомление шлюза и сверяет оплату
func (h *Handler) Webhook(c *fiber.Ctx) error {
	name := c.Params("gateway")
	hook, found := h.webhooks[name]
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "unknown gateway")
	}

	event, err := hook.Parser.ParseWebhook(c.Body(), c.Get(hook.SignatureHeader))
	if err != nil {
		h.logger.Warn("Rejected webhook", zap.String("gateway", name), zap.Error(err))
		if errors.Is(err, payment.ErrInvalidSignature) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
		}
		return fiber.NewError(fiber.StatusBadRequest, "malformed webhook")
	}

	settlement, err := h.payments.HandleWebhook(c.UserContext(), event)
	if err != nil {
		return err
	}
	if settlement == nil {
		return ok(c, fiber.StatusOK, fiber.Map{"ignored": true})
	}
	return ok(c, fiber.StatusOK, settlement)
}
