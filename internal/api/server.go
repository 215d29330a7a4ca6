// Package api HTTP-адаптер ядра записи и оплаты на fiber.
package api

import (
	"context"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type BookingAPI interface {
	Book(ctx context.Context, req service.BookRequest) (*model.Appointment, error)
	Get(ctx context.Context, req model.Requester, appointmentID uuid.UUID) (*model.Appointment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
}

type CancellationAPI interface {
	Cancel(ctx context.Context, req model.Requester, appointmentID uuid.UUID) error
	Complete(ctx context.Context, req model.Requester, appointmentID uuid.UUID) error
}

type PaymentAPI interface {
	CreateOrder(ctx context.Context, appointmentID uuid.UUID, gateway string) (*model.OrderHandle, error)
	Verify(ctx context.Context, appointmentID uuid.UUID, ev model.PaymentEvidence) (*model.Settlement, error)
	HandleWebhook(ctx context.Context, event *payment.WebhookEvent) (*model.Settlement, error)
}

type AvailabilityAPI interface {
	Doctor(ctx context.Context, doctorID uuid.UUID, dates ...string) (*model.Doctor, error)
	FreeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
	SetDoctorAvailability(ctx context.Context, req model.Requester, doctorID uuid.UUID, available bool) error
	Templates(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilitySlot, error)
	CreateTemplate(ctx context.Context, req model.Requester, tr service.TemplateRequest) (*model.AvailabilitySlot, error)
	DeleteTemplate(ctx context.Context, req model.Requester, doctorID uuid.UUID, templateID int64) error
}

// WebhookParser проверяет подпись и разбирает уведомление шлюза
type WebhookParser interface {
	ParseWebhook(body []byte, signature string) (*payment.WebhookEvent, error)
}

// Webhook источник уведомлений: парсер и заголовок с подписью
type Webhook struct {
	Parser          WebhookParser
	SignatureHeader string
}

type Deps struct {
	Booking      BookingAPI
	Cancellation CancellationAPI
	Payments     PaymentAPI
	Availability AvailabilityAPI
	Webhooks     map[string]Webhook
	JWTSecret    string
}

type Handler struct {
	booking      BookingAPI
	cancellation CancellationAPI
	payments     PaymentAPI
	availability AvailabilityAPI
	webhooks     map[string]Webhook
	logger       *zap.Logger
}

// NewServer собирает fiber-приложение со всеми маршрутами
func NewServer(deps Deps, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "clinic_booking",
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
	})

	h := &Handler{
		booking:      deps.Booking,
		cancellation: deps.Cancellation,
		payments:     deps.Payments,
		availability: deps.Availability,
		webhooks:     deps.Webhooks,
		logger:       logger,
	}

	app.Use(recover.New())
	app.Use(requestMetrics())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/webhooks/:gateway", h.Webhook)

	api := app.Group("/api", Protected(deps.JWTSecret), requesterFromToken)

	appointments := api.Group("/appointments")
	appointments.Post("", h.BookAppointment)
	appointments.Get("", h.ListAppointments)
	appointments.Get("/:id", h.GetAppointment)
	appointments.Post("/:id/cancel", h.CancelAppointment)
	appointments.Post("/:id/complete", h.CompleteAppointment)

	doctors := api.Group("/doctors")
	doctors.Get("/:id", h.GetDoctor)
	doctors.Get("/:id/slots", h.FreeSlots)
	doctors.Patch("/:id/availability", h.SetAvailability)
	doctors.Get("/:id/templates", h.ListTemplates)
	doctors.Post("/:id/templates", h.CreateTemplate)
	doctors.Delete("/:id/templates/:templateId", h.DeleteTemplate)

	payments := api.Group("/payments")
	payments.Post("/:gateway/orders", h.CreatePaymentOrder)
	payments.Post("/:gateway/verify", h.VerifyPayment)

	return app
}

func ok(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{"status": "success", "data": data})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
