package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityRepository управляет шаблонами приёма врачей
type AvailabilityRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewAvailabilityRepository создаёт новый репозиторий
func NewAvailabilityRepository(pool base.DB, logger *zap.Logger) *AvailabilityRepository {
	return &AvailabilityRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Create создаёт новый шаблон
func (r *AvailabilityRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (doctor_id, weekday, start_time, end_time, slot_minutes, max_patients, appointment_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx,
		query,
		slot.DoctorID,
		slot.Weekday,
		slot.StartTime,
		slot.EndTime,
		slot.SlotMinutes,
		slot.MaxPatients,
		slot.AppointmentType,
		slot.IsActive,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}

	r.logger.Debug("Availability slot stored",
		zap.Int64("id", slot.ID),
		zap.String("doctor_id", slot.DoctorID.String()),
	)

	return nil
}

// ListByDoctor получает все шаблоны врача
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT id, doctor_id, weekday, start_time, end_time, slot_minutes, max_patients, appointment_type, is_active, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY weekday, start_time
	`

	rows, err := r.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("query availability slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot := &model.AvailabilitySlot{}
		err := rows.Scan(
			&slot.ID,
			&slot.DoctorID,
			&slot.Weekday,
			&slot.StartTime,
			&slot.EndTime,
			&slot.SlotMinutes,
			&slot.MaxPatients,
			&slot.AppointmentType,
			&slot.IsActive,
			&slot.CreatedAt,
			&slot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability slots: %w", err)
	}

	return slots, nil
}

// Delete удаляет шаблон врача
func (r *AvailabilityRepository) Delete(ctx context.Context, doctorID uuid.UUID, id int64) (bool, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM availability_slots WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return false, fmt.Errorf("delete availability slot: %w", err)
	}
	return affected > 0, nil
}
