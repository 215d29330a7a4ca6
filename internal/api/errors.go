package api

import (
	"errors"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusByCode HTTP-статус для стабильного кода ошибки
var statusByCode = map[string]int{
	service.CodeValidation:           fiber.StatusBadRequest,
	service.CodeNotFound:             fiber.StatusNotFound,
	service.CodeDoctorUnavailable:    fiber.StatusConflict,
	service.CodeSlotConflict:         fiber.StatusConflict,
	service.CodeUnauthorized:         fiber.StatusForbidden,
	service.CodeAlreadyCancelled:     fiber.StatusConflict,
	service.CodeAlreadyPaid:          fiber.StatusConflict,
	service.CodeAppointmentCompleted: fiber.StatusConflict,
	service.CodeGateway:              fiber.StatusBadGateway,
	service.CodePersistence:          fiber.StatusInternalServerError,
}

// errorHandler переводит ошибки сервисов в {"status":"error","code":...,"message":...}
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody(httpCode(fe.Code), fe.Message))
		}

		code := service.ErrorCode(err)
		status, ok := statusByCode[code]
		if !ok {
			status = fiber.StatusInternalServerError
		}

		message := err.Error()
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("code", code),
				zap.Error(err),
			)
			// Детали хранилища наружу не отдаём
			if code != service.CodeGateway {
				message = "internal error"
			}
		}

		return c.Status(status).JSON(errorBody(code, message))
	}
}

func errorBody(code, message string) fiber.Map {
	return fiber.Map{"status": "error", "code": code, "message": message}
}

func httpCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return service.CodeValidation
	case fiber.StatusUnauthorized:
		return "unauthenticated"
	case fiber.StatusForbidden:
		return service.CodeUnauthorized
	case fiber.StatusNotFound:
		return service.CodeNotFound
	default:
		return service.CodeInternal
	}
}
