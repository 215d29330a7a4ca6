package handlers

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
)

// StatusDisplay содержит emoji и текст для отображения статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetStatusDisplay возвращает emoji и текст для статуса записи
func GetStatusDisplay(status model.AppointmentStatus) StatusDisplay {
	displays := map[model.AppointmentStatus]StatusDisplay{
		model.AppointmentStatusScheduled: {"⏳", "Ожидает оплаты"},
		model.AppointmentStatusPaid:      {"✅", "Оплачена"},
		model.AppointmentStatusCompleted: {"✔️", "Приём состоялся"},
		model.AppointmentStatusCancelled: {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// FormatAppointment форматирует запись для отображения
func FormatAppointment(a *model.Appointment) string {
	display := GetStatusDisplay(a.Status)

	return fmt.Sprintf(
		"%s %s, %s\n"+
			"👨‍⚕️ %s\n"+
			"💰 %s\n"+
			"📊 Статус: %s\n"+
			"🆔 %s",
		display.Emoji,
		a.SlotDate,
		a.SlotTime,
		a.DoctorName,
		a.Amount.StringFixed(2),
		display.Text,
		a.ID,
	)
}

// FormatSlots форматирует список свободного времени
func FormatSlots(date string, slots []string) string {
	if len(slots) == 0 {
		return fmt.Sprintf("📭 На %s свободных слотов нет.", date)
	}
	return fmt.Sprintf("🗓 Свободно на %s:\n\n%s", date, strings.Join(slots, "  "))
}

// errorText текст для пользователя по коду ошибки сервиса
func errorText(err error) string {
	switch service.ErrorCode(err) {
	case service.CodeValidation:
		return "❌ Некорректные данные. Проверьте дату (ГГГГ-ММ-ДД) и время (ЧЧ:ММ)."
	case service.CodeNotFound:
		return "❌ Не найдено."
	case service.CodeDoctorUnavailable:
		return "😔 Врач сейчас не принимает записи."
	case service.CodeSlotConflict:
		return "😔 Это время уже занято. Выберите другое: /slots"
	case service.CodeUnauthorized:
		return "🚫 Это не ваша запись."
	case service.CodeAlreadyCancelled:
		return "❌ Запись отменена."
	case service.CodeAlreadyPaid:
		return "✅ Запись уже оплачена."
	case service.CodeAppointmentCompleted:
		return "✔️ Приём уже состоялся."
	case service.CodeGateway:
		return "💳 Платёжная система недоступна. Попробуйте позже."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
