package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled" // Записан, не оплачен
	AppointmentStatusPaid      AppointmentStatus = "paid"      // Оплачен через платёжный шлюз
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменён (терминальное)
	AppointmentStatusCompleted AppointmentStatus = "completed" // Приём состоялся (терминальное)
)

// ErrIllegalTransition возвращается при недопустимой смене статуса
var ErrIllegalTransition = errors.New("illegal appointment status transition")

// allowedTransitions описывает допустимые переходы между статусами.
// cancelled и completed поглощающие: из них переходов нет.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled: {AppointmentStatusPaid, AppointmentStatusCancelled, AppointmentStatusCompleted},
	AppointmentStatusPaid:      {AppointmentStatusCancelled, AppointmentStatusCompleted},
}

// CanTransitionTo проверяет допустимость перехода
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для статусов, после которых запись не меняется
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

// IsActive возвращает true, пока запись удерживает слот врача
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusScheduled || s == AppointmentStatusPaid
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusPaid, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

type Appointment struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"userId"`
	DoctorID uuid.UUID `json:"docId"`

	// Снимок данных врача и пациента на момент записи
	DoctorName       string          `json:"doctorName"`
	DoctorSpeciality string          `json:"doctorSpeciality"`
	PatientName      string          `json:"patientName"`
	PatientEmail     string          `json:"patientEmail"`
	Amount           decimal.Decimal `json:"amount"`

	SlotDate string `json:"slotDate"` // YYYY-MM-DD
	SlotTime string `json:"slotTime"` // HH:MM

	Status         AppointmentStatus `json:"status"`
	PaidAt         *time.Time        `json:"paidAt,omitempty"`
	PaymentGateway string            `json:"paymentGateway,omitempty"`
	PaymentOrderID string            `json:"paymentOrderId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Transition меняет статус записи, если переход допустим.
// При переходе в paid фиксируется время оплаты.
func (a *Appointment) Transition(next AppointmentStatus, at time.Time) error {
	if !a.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Status, next)
	}
	if next == AppointmentStatusPaid {
		paidAt := at
		a.PaidAt = &paidAt
	}
	a.Status = next
	a.UpdatedAt = at
	return nil
}

// Payment оплачена ли запись (сохраняется и после отмены/завершения)
func (a *Appointment) Payment() bool {
	return a.PaidAt != nil
}

func (a *Appointment) Cancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}

// Slot возвращает координату слота, которую удерживает запись
func (a *Appointment) Slot() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, Date: a.SlotDate, Time: a.SlotTime}
}

// MarshalJSON дополняет запись флагами payment, cancelled и isCompleted
func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	return json.Marshal(struct {
		plain
		Payment     bool `json:"payment"`
		Cancelled   bool `json:"cancelled"`
		IsCompleted bool `json:"isCompleted"`
	}{plain(a), a.Payment(), a.Cancelled(), a.IsCompleted()})
}
