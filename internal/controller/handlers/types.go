package handlers

import (
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService         *service.UserService
	bookingService      *service.BookingService
	cancellationService *service.CancellationService
	paymentService      *service.PaymentService
	availabilityService *service.AvailabilityService
	logger              *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	bookingService *service.BookingService,
	cancellationService *service.CancellationService,
	paymentService *service.PaymentService,
	availabilityService *service.AvailabilityService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:         userService,
		bookingService:      bookingService,
		cancellationService: cancellationService,
		paymentService:      paymentService,
		availabilityService: availabilityService,
		logger:              logger,
	}
}
