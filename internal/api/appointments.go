package api

import (
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type bookAppointmentRequest struct {
	UserID   *uuid.UUID `json:"userId"` // только для администратора
	DoctorID uuid.UUID  `json:"docId"`
	SlotDate string     `json:"slotDate"`
	SlotTime string     `json:"slotTime"`
}

func (h *Handler) BookAppointment(c *fiber.Ctx) error {
	var body bookAppointmentRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}

	req := requester(c)
	userID := req.ID
	if body.UserID != nil && *body.UserID != req.ID {
		if req.Role != model.RoleAdmin {
			return service.ErrUnauthorized
		}
		userID = *body.UserID
	}

	appt, err := h.booking.Book(c.UserContext(), service.BookRequest{
		UserID:   userID,
		DoctorID: body.DoctorID,
		Date:     body.SlotDate,
		Time:     body.SlotTime,
	})
	if err != nil {
		return err
	}

	return ok(c, fiber.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	appts, err := h.booking.ListForUser(c.UserContext(), requester(c).ID)
	if err != nil {
		return err
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}
	return ok(c, fiber.StatusOK, appts)
}

func (h *Handler) GetAppointment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.booking.Get(c.UserContext(), requester(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.cancellation.Cancel(c.UserContext(), requester(c), id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"appointmentId": id, "cancelled": true})
}

func (h *Handler) CompleteAppointment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.cancellation.Complete(c.UserContext(), requester(c), id); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"appointmentId": id, "isCompleted": true})
}
