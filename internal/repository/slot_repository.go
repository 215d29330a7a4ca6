package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/google/uuid"
)

// SlotRepository учёт занятых слотов в PostgreSQL.
// Одна строка на (врач, дата), времена хранятся упорядоченным массивом.
type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool base.DB) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// IsFree проверяет, свободен ли слот
func (r *SlotRepository) IsFree(ctx context.Context, doctorID uuid.UUID, date, slotTime string) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM booked_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND $3::text = ANY(slot_times)
		)
	`

	var free bool
	if err := r.QueryRow(ctx, query, doctorID, date, slotTime).Scan(&free); err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}

	return free, nil
}

// Reserve занимает слот. Условный upsert: строка меняется,
// только если времени ещё нет в массиве.
func (r *SlotRepository) Reserve(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error {
	query := `
		INSERT INTO booked_slots (doctor_id, slot_date, slot_times)
		VALUES ($1, $2, ARRAY[$3::text])
		ON CONFLICT (doctor_id, slot_date) DO UPDATE
		SET slot_times = (
			SELECT array_agg(t ORDER BY t)
			FROM unnest(booked_slots.slot_times || EXCLUDED.slot_times) AS t
		)
		WHERE NOT ($3::text = ANY(booked_slots.slot_times))
	`

	affected, err := r.ExecAffected(ctx, query, doctorID, date, slotTime)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}

	// Слот уже занят
	if affected == 0 {
		return fmt.Errorf("%w: %s %s", service.ErrSlotConflict, date, slotTime)
	}

	return nil
}

// Release освобождает слот; отсутствие слота не ошибка
func (r *SlotRepository) Release(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error {
	query := `
		UPDATE booked_slots
		SET slot_times = array_remove(slot_times, $3::text)
		WHERE doctor_id = $1 AND slot_date = $2
	`

	if _, err := r.ExecAffected(ctx, query, doctorID, date, slotTime); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	return nil
}

// Booked занятые времена на дату
func (r *SlotRepository) Booked(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	query := `SELECT slot_times FROM booked_slots WHERE doctor_id = $1 AND slot_date = $2`

	var times []string
	err := r.QueryRow(ctx, query, doctorID, date).Scan(&times)
	if err != nil {
		if base.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get booked slots: %w", err)
	}

	if times == nil {
		times = []string{}
	}
	return times, nil
}
