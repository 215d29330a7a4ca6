package api

import (
	"strconv"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetDoctor(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var dates []string
	if date := c.Query("date"); date != "" {
		dates = append(dates, date)
	}

	doctor, err := h.availability.Doctor(c.UserContext(), id, dates...)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, doctor)
}

func (h *Handler) FreeSlots(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	date := c.Query("date")
	slots, err := h.availability.FreeSlots(c.UserContext(), id, date)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"doctorId": id, "date": date, "slots": slots})
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h *Handler) SetAvailability(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var body availabilityRequest
	if err := c.BodyParser(&body); err != nil || body.Available == nil {
		return fiber.NewError(fiber.StatusBadRequest, "available is required")
	}

	if err := h.availability.SetDoctorAvailability(c.UserContext(), requester(c), id, *body.Available); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"doctorId": id, "available": *body.Available})
}

func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	templates, err := h.availability.Templates(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, templates)
}

func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var body service.TemplateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	body.DoctorID = id

	tpl, err := h.availability.CreateTemplate(c.UserContext(), requester(c), body)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, tpl)
}

func (h *Handler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	templateID, err := strconv.ParseInt(c.Params("templateId"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid templateId")
	}

	if err := h.availability.DeleteTemplate(c.UserContext(), requester(c), id, templateID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
