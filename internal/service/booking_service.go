package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookRequest запрос на запись к врачу
type BookRequest struct {
	UserID   uuid.UUID `json:"userId" validate:"required"`
	DoctorID uuid.UUID `json:"docId" validate:"required"`
	Date     string    `json:"slotDate" validate:"required,slotdate"`
	Time     string    `json:"slotTime" validate:"required,slottime"`
}

type BookingService struct {
	doctors      DoctorStore
	users        UserStore
	appointments AppointmentStore
	slots        SlotStore
	logger       *zap.Logger
	now          func() time.Time
}

func NewBookingService(
	doctors DoctorStore,
	users UserStore,
	appointments AppointmentStore,
	slots SlotStore,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		doctors:      doctors,
		users:        users,
		appointments: appointments,
		slots:        slots,
		logger:       logger,
		now:          time.Now,
	}
}

// Book записывает пациента на слот врача
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	appt, err := s.book(ctx, req)
	metrics.Bookings.WithLabelValues(metrics.Result(ErrorCode(err))).Inc()
	return appt, err
}

func (s *BookingService) book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	doctor, err := s.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: get doctor: %w", ErrPersistence, err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, req.DoctorID)
	}
	if !doctor.Available {
		return nil, fmt.Errorf("%w: %s", ErrDoctorUnavailable, req.DoctorID)
	}

	// Занимаем слот до создания записи
	if err := s.slots.Reserve(ctx, req.DoctorID, req.Date, req.Time); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reserve slot: %w", ErrPersistence, err)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		s.release(ctx, req.DoctorID, req.Date, req.Time)
		return nil, fmt.Errorf("%w: get user: %w", ErrPersistence, err)
	}
	if user == nil {
		s.release(ctx, req.DoctorID, req.Date, req.Time)
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, req.UserID)
	}

	now := s.now()
	appt := &model.Appointment{
		ID:               uuid.New(),
		UserID:           user.ID,
		DoctorID:         doctor.ID,
		DoctorName:       doctor.Name,
		DoctorSpeciality: doctor.Speciality,
		PatientName:      user.Name,
		PatientEmail:     user.Email,
		Amount:           doctor.Fees,
		SlotDate:         req.Date,
		SlotTime:         req.Time,
		Status:           model.AppointmentStatusScheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		// Слот уже держит другая активная запись: резерв принадлежит ей, не освобождаем
		if errors.Is(err, ErrSlotConflict) {
			s.logger.Warn("Active appointment already holds slot",
				zap.String("slot", appt.Slot().String()),
			)
			return nil, err
		}
		s.release(ctx, req.DoctorID, req.Date, req.Time)
		return nil, fmt.Errorf("%w: create appointment: %w", ErrPersistence, err)
	}

	s.logger.Info("Appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("doctor_id", doctor.ID.String()),
		zap.String("slot_date", appt.SlotDate),
		zap.String("slot_time", appt.SlotTime),
	)

	return appt, nil
}

// release откатывает резерв слота; ошибка только логируется, слот подберёт сверка
func (s *BookingService) release(ctx context.Context, doctorID uuid.UUID, date, slotTime string) {
	if err := s.slots.Release(ctx, doctorID, date, slotTime); err != nil {
		s.logger.Error("Failed to release slot after booking failure",
			zap.String("doctor_id", doctorID.String()),
			zap.String("slot_date", date),
			zap.String("slot_time", slotTime),
			zap.Error(err),
		)
	}
}

// Get возвращает запись, если запрашивающий её пациент, её врач или администратор
func (s *BookingService) Get(ctx context.Context, req model.Requester, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: get appointment: %w", ErrPersistence, err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	if !canManage(req, appt) {
		return nil, ErrUnauthorized
	}
	return appt, nil
}

// ListForUser записи пациента, новые первыми
func (s *BookingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	appts, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %w", ErrPersistence, err)
	}
	return appts, nil
}

// canManage пациент записи, её врач или администратор
func canManage(req model.Requester, appt *model.Appointment) bool {
	switch req.Role {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		return req.ID == appt.DoctorID
	case model.RolePatient:
		return req.ID == appt.UserID
	}
	return false
}
