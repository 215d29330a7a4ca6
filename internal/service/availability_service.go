package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateRequest новый шаблон еженедельного приёма
type TemplateRequest struct {
	DoctorID        uuid.UUID `json:"doctorId" validate:"required"`
	Weekday         int       `json:"weekday" validate:"min=0,max=6"`
	StartTime       string    `json:"startTime" validate:"required,slottime"`
	EndTime         string    `json:"endTime" validate:"required,slottime"`
	SlotMinutes     int       `json:"slotMinutes" validate:"gt=0,lte=720"`
	MaxPatients     int       `json:"maxPatients" validate:"gte=1"`
	AppointmentType string    `json:"appointmentType" validate:"max=64"`
}

type AvailabilityService struct {
	doctors   DoctorStore
	templates AvailabilityStore
	slots     SlotStore
	logger    *zap.Logger
}

func NewAvailabilityService(doctors DoctorStore, templates AvailabilityStore, slots SlotStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		doctors:   doctors,
		templates: templates,
		slots:     slots,
		logger:    logger,
	}
}

// Templates шаблоны приёма врача
func (s *AvailabilityService) Templates(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	templates, err := s.templates.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: list templates: %w", ErrPersistence, err)
	}
	return templates, nil
}

// CreateTemplate добавляет шаблон. Создать может сам врач или администратор.
func (s *AvailabilityService) CreateTemplate(ctx context.Context, req model.Requester, tr TemplateRequest) (*model.AvailabilitySlot, error) {
	if err := validateStruct(tr); err != nil {
		return nil, err
	}
	if !canManageDoctor(req, tr.DoctorID) {
		return nil, fmt.Errorf("%w: templates of doctor %s", ErrUnauthorized, tr.DoctorID)
	}

	start, _ := model.MinutesOf(tr.StartTime)
	end, _ := model.MinutesOf(tr.EndTime)
	if start >= end {
		return nil, fmt.Errorf("%w: start time %s must be before end time %s", ErrValidation, tr.StartTime, tr.EndTime)
	}

	doctor, err := s.doctors.GetByID(ctx, tr.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: get doctor: %w", ErrPersistence, err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, tr.DoctorID)
	}

	slot := &model.AvailabilitySlot{
		DoctorID:        tr.DoctorID,
		Weekday:         tr.Weekday,
		StartTime:       tr.StartTime,
		EndTime:         tr.EndTime,
		SlotMinutes:     tr.SlotMinutes,
		MaxPatients:     tr.MaxPatients,
		AppointmentType: tr.AppointmentType,
		IsActive:        true,
	}
	if err := s.templates.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("%w: create template: %w", ErrPersistence, err)
	}

	s.logger.Info("Availability template created",
		zap.Int64("template_id", slot.ID),
		zap.String("doctor_id", tr.DoctorID.String()),
		zap.Int("weekday", tr.Weekday),
		zap.String("start", tr.StartTime),
		zap.String("end", tr.EndTime),
	)

	return slot, nil
}

// DeleteTemplate удаляет шаблон врача
func (s *AvailabilityService) DeleteTemplate(ctx context.Context, req model.Requester, doctorID uuid.UUID, templateID int64) error {
	if !canManageDoctor(req, doctorID) {
		return fmt.Errorf("%w: templates of doctor %s", ErrUnauthorized, doctorID)
	}

	ok, err := s.templates.Delete(ctx, doctorID, templateID)
	if err != nil {
		return fmt.Errorf("%w: delete template: %w", ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: template %d", ErrValidation, templateID)
	}

	s.logger.Info("Availability template deleted",
		zap.Int64("template_id", templateID),
		zap.String("doctor_id", doctorID.String()),
	)
	return nil
}

// FreeSlots свободные времена врача на дату: времена активных шаблонов
// для дня недели за вычетом занятых слотов. Один пациент на слот.
func (s *AvailabilityService) FreeSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	if !model.ValidSlotDate(date) {
		return nil, fmt.Errorf("%w: slot date %q", ErrValidation, date)
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: get doctor: %w", ErrPersistence, err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}
	if !doctor.Available {
		return []string{}, nil
	}

	weekday, err := model.SlotWeekday(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	templates, err := s.templates.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: list templates: %w", ErrPersistence, err)
	}

	booked, err := s.slots.Booked(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: booked slots: %w", ErrPersistence, err)
	}
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	free := make(map[string]struct{})
	for _, tpl := range templates {
		if !tpl.IsActive || tpl.Weekday != int(weekday) {
			continue
		}
		times, err := tpl.Times()
		if err != nil {
			s.logger.Warn("Skipping malformed availability template",
				zap.Int64("template_id", tpl.ID),
				zap.Error(err),
			)
			continue
		}
		for _, t := range times {
			if _, ok := taken[t]; !ok {
				free[t] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(free))
	for t := range free {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// Doctor врач с занятыми слотами на указанные даты
func (s *AvailabilityService) Doctor(ctx context.Context, doctorID uuid.UUID, dates ...string) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: get doctor: %w", ErrPersistence, err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}

	doctor.SlotsBooked = make(map[string][]string, len(dates))
	for _, date := range dates {
		if !model.ValidSlotDate(date) {
			return nil, fmt.Errorf("%w: slot date %q", ErrValidation, date)
		}
		booked, err := s.slots.Booked(ctx, doctorID, date)
		if err != nil {
			return nil, fmt.Errorf("%w: booked slots: %w", ErrPersistence, err)
		}
		doctor.SlotsBooked[date] = booked
	}

	return doctor, nil
}

// SetDoctorAvailability включает или выключает приём новых записей
func (s *AvailabilityService) SetDoctorAvailability(ctx context.Context, req model.Requester, doctorID uuid.UUID, available bool) error {
	if !canManageDoctor(req, doctorID) {
		return fmt.Errorf("%w: availability of doctor %s", ErrUnauthorized, doctorID)
	}

	ok, err := s.doctors.SetAvailable(ctx, doctorID, available)
	if err != nil {
		return fmt.Errorf("%w: set availability: %w", ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}

	s.logger.Info("Doctor availability changed",
		zap.String("doctor_id", doctorID.String()),
		zap.Bool("available", available),
	)
	return nil
}

// canManageDoctor сам врач или администратор
func canManageDoctor(req model.Requester, doctorID uuid.UUID) bool {
	return req.Role == model.RoleAdmin || (req.Role == model.RoleDoctor && req.ID == doctorID)
}
