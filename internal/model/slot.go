package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
)

var slotTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// SlotKey координата слота: врач + дата + время.
// Дата и время используются как точные строковые ключи, без учёта часового пояса.
type SlotKey struct {
	DoctorID uuid.UUID `json:"doctorId"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DoctorID, k.Date, k.Time)
}

// ValidSlotDate проверяет формат YYYY-MM-DD (и что такая дата существует)
func ValidSlotDate(s string) bool {
	if len(s) != len(SlotDateLayout) {
		return false
	}
	_, err := time.Parse(SlotDateLayout, s)
	return err == nil
}

// ValidSlotTime проверяет формат HH:MM в 24-часовом виде
func ValidSlotTime(s string) bool {
	return slotTimeRe.MatchString(s)
}

// MinutesOf переводит HH:MM в минуты от полуночи
func MinutesOf(s string) (int, error) {
	if !ValidSlotTime(s) {
		return 0, fmt.Errorf("invalid slot time %q", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, nil
}

// FormatSlotMinutes обратное преобразование к MinutesOf
func FormatSlotMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotWeekday день недели для даты слота
func SlotWeekday(date string) (time.Weekday, error) {
	t, err := time.Parse(SlotDateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("parse slot date %q: %w", date, err)
	}
	return t.Weekday(), nil
}
