package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// activeSlotIndex частичный уникальный индекс: один неотменённый приём на слот
const activeSlotIndex = "appointments_active_slot_uq"

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool base.DB) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

const appointmentColumns = `
	id, user_id, doctor_id, doctor_name, doctor_speciality, patient_name, patient_email,
	amount::text, slot_date, slot_time, status, paid_at, payment_gateway, payment_order_id,
	created_at, updated_at`

// Create сохраняет запись на приём
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, doctor_id, doctor_name, doctor_speciality, patient_name, patient_email,
			amount, slot_date, slot_time, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		appt.ID,
		appt.UserID,
		appt.DoctorID,
		appt.DoctorName,
		appt.DoctorSpeciality,
		appt.PatientName,
		appt.PatientEmail,
		appt.Amount.String(),
		appt.SlotDate,
		appt.SlotTime,
		appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, activeSlotIndex) {
			return fmt.Errorf("%w: %s", service.ErrSlotConflict, appt.Slot())
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// CompareAndSetStatus условный переход статуса. При переходе в paid фиксируется paid_at.
func (r *AppointmentRepository) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from []model.AppointmentStatus,
	to model.AppointmentStatus,
) (bool, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		if !st.CanTransitionTo(to) {
			return false, fmt.Errorf("%w: %s -> %s", model.ErrIllegalTransition, st, to)
		}
		allowed[i] = string(st)
	}

	query := `
		UPDATE appointments
		SET status = $3::text,
		    paid_at = CASE WHEN $3::text = 'paid' THEN now() ELSE paid_at END,
		    updated_at = now()
		WHERE id = $1 AND status = ANY($2::text[])
	`

	affected, err := r.ExecAffected(ctx, query, id, allowed, string(to))
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}

	return affected > 0, nil
}

// SetPaymentOrder запоминает заказ в платёжном шлюзе.
// Условное обновление: запись должна быть scheduled, а прежний заказ - prevOrderID.
func (r *AppointmentRepository) SetPaymentOrder(ctx context.Context, id uuid.UUID, prevOrderID, gateway, orderID string) (bool, error) {
	query := `
		UPDATE appointments
		SET payment_gateway = $3, payment_order_id = $4, updated_at = now()
		WHERE id = $1 AND status = 'scheduled' AND payment_order_id = $2
	`

	affected, err := r.ExecAffected(ctx, query, id, prevOrderID, gateway, orderID)
	if err != nil {
		return false, fmt.Errorf("set payment order: %w", err)
	}

	return affected > 0, nil
}

// ListByUser записи пациента, новые первыми
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, userID)
}

// ListCancelledSince отменённые записи, изменённые не раньше since
func (r *AppointmentRepository) ListCancelledSince(ctx context.Context, since time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'cancelled' AND updated_at >= $1
		ORDER BY updated_at
	`

	return r.list(ctx, query, since)
}

// HasHolder есть ли неотменённая запись на слот
func (r *AppointmentRepository) HasHolder(ctx context.Context, slot model.SlotKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND status <> 'cancelled'
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, slot.DoctorID, slot.Date, slot.Time).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot holder: %w", err)
	}

	return exists, nil
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Appointment, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		appt   model.Appointment
		amount string
	)

	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.DoctorID,
		&appt.DoctorName,
		&appt.DoctorSpeciality,
		&appt.PatientName,
		&appt.PatientEmail,
		&amount,
		&appt.SlotDate,
		&appt.SlotTime,
		&appt.Status,
		&appt.PaidAt,
		&appt.PaymentGateway,
		&appt.PaymentOrderID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseDecimal(amount, &appt.Amount); err != nil {
		return nil, err
	}

	return &appt, nil
}
