package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Doctor struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Speciality string          `json:"speciality"`
	Fees       decimal.Decimal `json:"fees"`
	Available  bool            `json:"available"` // Принимает ли врач новые записи

	// Занятые слоты: дата -> упорядоченный список времени.
	// Только для чтения, источник истины - хранилище слотов.
	SlotsBooked map[string][]string `json:"slots_booked"`

	CreatedAt time.Time `json:"created_at"`
}
