package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleDoctor  UserRole = "doctor"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	TelegramID *int64    `json:"telegram_id,omitempty"` // указатель - пациент мог прийти не из бота
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Role       UserRole  `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// Requester тот, кто выполняет операцию (приходит из auth-слоя уже проверенным)
type Requester struct {
	ID   uuid.UUID
	Role UserRole
}
