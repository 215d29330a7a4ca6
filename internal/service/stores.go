package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
)

// Хранилища возвращают (nil, nil), если запись не найдена.

type DoctorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	// SetAvailable возвращает false, если врача нет
	SetAvailable(ctx context.Context, id uuid.UUID, available bool) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
}

type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// CompareAndSetStatus переводит запись в to, только если текущий статус входит в from.
	// Возвращает false, если условие не выполнилось.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error)
	// SetPaymentOrder запоминает заказ, только если запись ещё scheduled
	// и сохранённый заказ равен prevOrderID. Возвращает false, если условие не выполнилось.
	SetPaymentOrder(ctx context.Context, id uuid.UUID, prevOrderID, gateway, orderID string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
	// ListCancelledSince отменённые записи, изменённые не раньше since
	ListCancelledSince(ctx context.Context, since time.Time) ([]*model.Appointment, error)
	// HasHolder есть ли неотменённая запись, которая держит слот
	HasHolder(ctx context.Context, slot model.SlotKey) (bool, error)
}

type AvailabilityStore interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilitySlot, error)
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	Delete(ctx context.Context, doctorID uuid.UUID, id int64) (bool, error)
}

// SlotStore учёт занятых слотов врача по датам.
// Reserve атомарно проверяет и занимает слот, Release идемпотентен.
type SlotStore interface {
	IsFree(ctx context.Context, doctorID uuid.UUID, date, slotTime string) (bool, error)
	Reserve(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error
	Release(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error
	// Booked занятые времена на дату по возрастанию
	Booked(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
}
