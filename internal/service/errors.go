package service

import "errors"

// Ошибки ядра записи и оплаты. Оборачиваются через fmt.Errorf("%w: ...").
var (
	ErrValidation           = errors.New("validation error")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDoctorUnavailable    = errors.New("doctor not available")
	ErrSlotConflict         = errors.New("slot not available")
	ErrUnauthorized         = errors.New("unauthorized action")
	ErrAlreadyCancelled     = errors.New("appointment already cancelled")
	ErrAlreadyPaid          = errors.New("appointment already paid")
	ErrAppointmentCompleted = errors.New("appointment already completed")
	ErrGateway              = errors.New("payment gateway error")
	ErrPersistence          = errors.New("persistence error")
)

// Стабильные коды ошибок для внешних адаптеров
const (
	CodeValidation           = "validation_error"
	CodeNotFound             = "not_found"
	CodeDoctorUnavailable    = "doctor_unavailable"
	CodeSlotConflict         = "slot_conflict"
	CodeUnauthorized         = "unauthorized"
	CodeAlreadyCancelled     = "already_cancelled"
	CodeAlreadyPaid          = "already_paid"
	CodeAppointmentCompleted = "appointment_completed"
	CodeGateway              = "gateway_error"
	CodePersistence          = "persistence_error"
	CodeInternal             = "internal_error"
)

// ErrorCode возвращает стабильный код для ошибки
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrUserNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDoctorUnavailable):
		return CodeDoctorUnavailable
	case errors.Is(err, ErrSlotConflict):
		return CodeSlotConflict
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrAlreadyCancelled):
		return CodeAlreadyCancelled
	case errors.Is(err, ErrAlreadyPaid):
		return CodeAlreadyPaid
	case errors.Is(err, ErrAppointmentCompleted):
		return CodeAppointmentCompleted
	case errors.Is(err, ErrGateway):
		return CodeGateway
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternal
	}
}
