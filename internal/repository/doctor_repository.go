package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DoctorRepository struct {
	*base.Repository
}

func NewDoctorRepository(pool base.DB) *DoctorRepository {
	return &DoctorRepository{Repository: base.NewRepository(pool)}
}

const doctorColumns = `id, name, email, speciality, fees::text, available, created_at`

// Create создаёт врача
func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}

	query := `
		INSERT INTO doctors (id, name, email, speciality, fees, available)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Email,
		doctor.Speciality,
		doctor.Fees.String(),
		doctor.Available,
	).Scan(&doctor.CreatedAt)
	if err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}

	return nil
}

// GetByID получает врача по ID
func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	doctor, err := scanDoctor(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get doctor by id: %w", err)
	}

	return doctor, nil
}

// List врачи, отсортированные по имени
func (r *DoctorRepository) List(ctx context.Context, onlyAvailable bool) ([]*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE available OR NOT $1
		ORDER BY name
	`

	rows, err := r.Query(ctx, query, onlyAvailable)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, doctor)
	}

	return doctors, rows.Err()
}

// SetAvailable включает или выключает приём записей
func (r *DoctorRepository) SetAvailable(ctx context.Context, id uuid.UUID, available bool) (bool, error) {
	affected, err := r.ExecAffected(ctx, `UPDATE doctors SET available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return false, fmt.Errorf("set doctor availability: %w", err)
	}
	return affected > 0, nil
}

func scanDoctor(row pgx.Row) (*model.Doctor, error) {
	var (
		doctor model.Doctor
		fees   string
	)

	err := row.Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.Email,
		&doctor.Speciality,
		&fees,
		&doctor.Available,
		&doctor.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseDecimal(fees, &doctor.Fees); err != nil {
		return nil, err
	}

	return &doctor, nil
}
