package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot шаблон еженедельного приёма врача.
// Определяет, в какие часы врач принимает; занятость по конкретной дате
// хранится отдельно в хранилище слотов.
type AvailabilitySlot struct {
	ID              int64     `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	Weekday         int       `json:"weekday"`    // 0 = Sunday, 6 = Saturday
	StartTime       string    `json:"start_time"` // HH:MM
	EndTime         string    `json:"end_time"`   // HH:MM, не включительно
	SlotMinutes     int       `json:"slot_minutes"`
	MaxPatients     int       `json:"max_patients"` // хранится, но запись строго по одному пациенту на слот
	AppointmentType string    `json:"appointment_type"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Times разворачивает шаблон в список времён начала слотов
func (a *AvailabilitySlot) Times() ([]string, error) {
	start, err := MinutesOf(a.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := MinutesOf(a.EndTime)
	if err != nil {
		return nil, err
	}
	if a.SlotMinutes <= 0 {
		return nil, nil
	}

	var times []string
	for m := start; m+a.SlotMinutes <= end; m += a.SlotMinutes {
		times = append(times, FormatSlotMinutes(m))
	}
	return times, nil
}
