package model

import "github.com/google/uuid"

// OrderHandle непрозрачный идентификатор заказа в платёжном шлюзе
type OrderHandle struct {
	Gateway     string `json:"gateway"`
	OrderID     string `json:"orderId"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	CheckoutURL string `json:"checkoutUrl,omitempty"` // для шлюзов с редиректом
}

// PaymentEvidence подтверждение оплаты от клиента или вебхука
type PaymentEvidence struct {
	Gateway string `json:"gateway"`
	OrderID string `json:"orderId"`
	// Success флаг, заявленный клиентом после редиректа (nil - не передан)
	Success *bool `json:"success,omitempty"`
}

type SettlementOutcome string

const (
	OutcomeSettled        SettlementOutcome = "settled"
	OutcomeAlreadySettled SettlementOutcome = "already_settled"
	OutcomePaymentFailed  SettlementOutcome = "payment_failed"
)

// Settlement результат сверки оплаты
type Settlement struct {
	AppointmentID uuid.UUID         `json:"appointmentId"`
	Outcome       SettlementOutcome `json:"outcome"`
}
