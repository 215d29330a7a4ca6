package api

import (
	"strconv"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const requesterKey = "requester"

// Protected проверяет JWT. Токены выпускает внешний auth-сервис: claims user_id и role.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

// requesterFromToken кладёт Requester из проверенного токена в контекст запроса
func requesterFromToken(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing or malformed JWT")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid user_id claim")
	}

	role := model.UserRole("")
	if r, ok := claims["role"].(string); ok {
		role = model.UserRole(r)
	}
	switch role {
	case model.RolePatient, model.RoleDoctor, model.RoleAdmin:
	case "":
		role = model.RolePatient
	default:
		return fiber.NewError(fiber.StatusForbidden, "Unknown role")
	}

	c.Locals(requesterKey, model.Requester{ID: id, Role: role})
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing or malformed JWT")
	}
	return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
}

func requester(c *fiber.Ctx) model.Requester {
	req, _ := c.Locals(requesterKey).(model.Requester)
	return req
}

// requestMetrics пишет длительность запросов в Prometheus
func requestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		metrics.HTTPRequests.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(started).Seconds())
		return err
	}
}
