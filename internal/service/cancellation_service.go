package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var activeStatuses = []model.AppointmentStatus{
	model.AppointmentStatusScheduled,
	model.AppointmentStatusPaid,
}

type CancellationService struct {
	appointments AppointmentStore
	slots        SlotStore
	logger       *zap.Logger
}

func NewCancellationService(appointments AppointmentStore, slots SlotStore, logger *zap.Logger) *CancellationService {
	return &CancellationService{
		appointments: appointments,
		slots:        slots,
		logger:       logger,
	}
}

// Cancel отменяет запись и освобождает слот. Повторная отмена ничего не делает.
func (s *CancellationService) Cancel(ctx context.Context, req model.Requester, appointmentID uuid.UUID) error {
	err := s.cancel(ctx, req, appointmentID)
	metrics.Cancellations.WithLabelValues(metrics.Result(ErrorCode(err))).Inc()
	return err
}

func (s *CancellationService) cancel(ctx context.Context, req model.Requester, appointmentID uuid.UUID) error {
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return err
	}

	if !canManage(req, appt) {
		return fmt.Errorf("%w: cancel appointment %s", ErrUnauthorized, appointmentID)
	}

	switch appt.Status {
	case model.AppointmentStatusCancelled:
		return nil
	case model.AppointmentStatusCompleted:
		return fmt.Errorf("%w: %s", ErrAppointmentCompleted, appointmentID)
	}

	ok, err := s.appointments.CompareAndSetStatus(ctx, appointmentID, activeStatuses, model.AppointmentStatusCancelled)
	if err != nil {
		return fmt.Errorf("%w: cancel appointment: %w", ErrPersistence, err)
	}
	if !ok {
		// Статус поменялся между чтением и обновлением
		current, err := s.load(ctx, appointmentID)
		if err != nil {
			return err
		}
		switch current.Status {
		case model.AppointmentStatusCancelled:
			// Отменили параллельно, слот освобождает победитель
			return nil
		case model.AppointmentStatusCompleted:
			return fmt.Errorf("%w: %s", ErrAppointmentCompleted, appointmentID)
		default:
			return fmt.Errorf("%w: cancel appointment %s lost update in status %s", ErrPersistence, appointmentID, current.Status)
		}
	}

	if err := s.slots.Release(ctx, appt.DoctorID, appt.SlotDate, appt.SlotTime); err != nil {
		// Запись уже отменена; висящий резерв освободит сверка
		s.logger.Error("Failed to release slot after cancellation",
			zap.String("appointment_id", appointmentID.String()),
			zap.String("slot", appt.Slot().String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Appointment cancelled",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("requester_id", req.ID.String()),
		zap.String("requester_role", string(req.Role)),
	)

	return nil
}

// Complete отмечает приём состоявшимся. Доступно врачу записи и администратору.
func (s *CancellationService) Complete(ctx context.Context, req model.Requester, appointmentID uuid.UUID) error {
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return err
	}

	if req.Role != model.RoleAdmin && !(req.Role == model.RoleDoctor && req.ID == appt.DoctorID) {
		return fmt.Errorf("%w: complete appointment %s", ErrUnauthorized, appointmentID)
	}

	switch appt.Status {
	case model.AppointmentStatusCompleted:
		return nil
	case model.AppointmentStatusCancelled:
		return fmt.Errorf("%w: %s", ErrAlreadyCancelled, appointmentID)
	}

	ok, err := s.appointments.CompareAndSetStatus(ctx, appointmentID, activeStatuses, model.AppointmentStatusCompleted)
	if err != nil {
		return fmt.Errorf("%w: complete appointment: %w", ErrPersistence, err)
	}
	if !ok {
		current, err := s.load(ctx, appointmentID)
		if err != nil {
			return err
		}
		if current.Status == model.AppointmentStatusCancelled {
			return fmt.Errorf("%w: %s", ErrAlreadyCancelled, appointmentID)
		}
		return nil
	}

	s.logger.Info("Appointment completed",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("requester_id", req.ID.String()),
	)

	return nil
}

func (s *CancellationService) load(ctx context.Context, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: get appointment: %w", ErrPersistence, err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	return appt, nil
}
