package handlers

import (
	"errors"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/google/uuid"
)

var errUsage = errors.New("wrong command arguments")

// commandArgs разбирает текст вида "/cmd a b c".
// Возвращает false, если команда другая (например /bookings для префикса /book).
func commandArgs(text, command string) ([]string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}

	// Команда может прийти как /book@clinic_bot
	name, _, _ := strings.Cut(fields[0], "@")
	if name != command {
		return nil, false
	}
	return fields[1:], true
}

type slotsArgs struct {
	DoctorID uuid.UUID
	Date     string
}

func parseSlotsArgs(args []string) (slotsArgs, error) {
	if len(args) != 2 {
		return slotsArgs{}, errUsage
	}
	doctorID, err := uuid.Parse(args[0])
	if err != nil || !model.ValidSlotDate(args[1]) {
		return slotsArgs{}, errUsage
	}
	return slotsArgs{DoctorID: doctorID, Date: args[1]}, nil
}

type bookArgs struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
}

func parseBookArgs(args []string) (bookArgs, error) {
	if len(args) != 3 {
		return bookArgs{}, errUsage
	}
	slots, err := parseSlotsArgs(args[:2])
	if err != nil {
		return bookArgs{}, err
	}
	if !model.ValidSlotTime(args[2]) {
		return bookArgs{}, errUsage
	}
	return bookArgs{DoctorID: slots.DoctorID, Date: slots.Date, Time: args[2]}, nil
}

func parseAppointmentID(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, errUsage
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, errUsage
	}
	return id, nil
}

type payArgs struct {
	AppointmentID uuid.UUID
	Gateway       string // пусто - шлюз по умолчанию
}

func parsePayArgs(args []string) (payArgs, error) {
	if len(args) == 0 || len(args) > 2 {
		return payArgs{}, errUsage
	}
	id, err := parseAppointmentID(args[:1])
	if err != nil {
		return payArgs{}, err
	}

	res := payArgs{AppointmentID: id}
	if len(args) == 2 {
		res.Gateway = strings.ToLower(args[1])
	}
	return res, nil
}
