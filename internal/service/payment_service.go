package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var minorUnits = decimal.NewFromInt(100)

// GatewayResolver выбирает платёжный шлюз по имени (пустое имя - по умолчанию)
type GatewayResolver interface {
	Get(name string) (payment.Gateway, error)
}

type PaymentService struct {
	appointments AppointmentStore
	gateways     GatewayResolver
	currency     string
	timeout      time.Duration
	logger       *zap.Logger
}

func NewPaymentService(
	appointments AppointmentStore,
	gateways GatewayResolver,
	currency string,
	timeout time.Duration,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		appointments: appointments,
		gateways:     gateways,
		currency:     currency,
		timeout:      timeout,
		logger:       logger,
	}
}

// CreateOrder открывает заказ в шлюзе на сумму гонорара врача
func (s *PaymentService) CreateOrder(ctx context.Context, appointmentID uuid.UUID, gatewayName string) (*model.OrderHandle, error) {
	handle, err := s.createOrder(ctx, appointmentID, gatewayName)
	metrics.PaymentOrders.WithLabelValues(gatewayLabel(gatewayName), metrics.Result(ErrorCode(err))).Inc()
	return handle, err
}

func (s *PaymentService) createOrder(ctx context.Context, appointmentID uuid.UUID, gatewayName string) (*model.OrderHandle, error) {
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := payable(appt); err != nil {
		return nil, err
	}

	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	amountMinor := appt.Amount.Mul(minorUnits).Round(0).IntPart()
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount %s", ErrValidation, appt.Amount)
	}

	// Второй заказ на ту же запись не открываем, пока первый можно оплатить
	if appt.PaymentOrderID != "" {
		handle, err := s.openOrderHandle(ctx, appt, gw.Name())
		if err != nil || handle != nil {
			return handle, err
		}
	}

	order, err := s.openOrder(ctx, gw, amountMinor, appt.ID.String())
	if err != nil {
		s.logger.Warn("Gateway failed to open order",
			zap.String("gateway", gw.Name()),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	ok, err := s.appointments.SetPaymentOrder(ctx, appt.ID, appt.PaymentOrderID, gw.Name(), order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: record payment order: %w", ErrPersistence, err)
	}
	if !ok {
		// Пока открывался заказ, запись отменили или ей записали другой заказ
		s.logger.Warn("Payment order abandoned, appointment changed concurrently",
			zap.String("appointment_id", appointmentID.String()),
			zap.String("gateway", gw.Name()),
			zap.String("order_id", order.ID),
		)
		return s.afterLostOrder(ctx, appointmentID, gw.Name())
	}

	s.logger.Info("Payment order created",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("gateway", gw.Name()),
		zap.String("order_id", order.ID),
		zap.Int64("amount_minor", amountMinor),
	)

	return &model.OrderHandle{
		Gateway:     gw.Name(),
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		CheckoutURL: order.CheckoutURL,
	}, nil
}

// payable можно ли открыть заказ на оплату записи
func payable(appt *model.Appointment) error {
	switch {
	case appt.Cancelled():
		return fmt.Errorf("%w: %s", ErrAlreadyCancelled, appt.ID)
	case appt.IsCompleted():
		return fmt.Errorf("%w: %s", ErrAppointmentCompleted, appt.ID)
	case appt.Payment():
		return fmt.Errorf("%w: %s", ErrAlreadyPaid, appt.ID)
	}
	return nil
}

// openOrderHandle проверяет сохранённый заказ записи в шлюзе.
// Возвращает его handle, если заказ ещё можно оплатить, и nil, если его можно заменить новым.
func (s *PaymentService) openOrderHandle(ctx context.Context, appt *model.Appointment, gatewayName string) (*model.OrderHandle, error) {
	prev, err := s.gateways.Get(appt.PaymentGateway)
	if err != nil {
		// Шлюз прежнего заказа больше не настроен, оплатить его нельзя
		s.logger.Warn("Previous payment gateway is not configured",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("gateway", appt.PaymentGateway),
		)
		return nil, nil
	}

	status, err := s.fetchStatus(ctx, prev, appt.PaymentOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: check open order: %w", ErrGateway, err)
	}

	switch status.Status {
	case payment.StatusFailed:
		return nil, nil
	case payment.StatusPaid:
		return nil, fmt.Errorf("%w: order %s is paid, verify it", ErrAlreadyPaid, appt.PaymentOrderID)
	}

	if prev.Name() != gatewayName {
		return nil, fmt.Errorf("%w: appointment %s has open order %s on %s",
			ErrValidation, appt.ID, appt.PaymentOrderID, prev.Name())
	}

	return &model.OrderHandle{
		Gateway:     prev.Name(),
		OrderID:     appt.PaymentOrderID,
		AmountMinor: status.AmountMinor,
		Currency:    s.currency,
		CheckoutURL: status.CheckoutURL,
	}, nil
}

// afterLostOrder перечитывает запись, если заказ не удалось записать
func (s *PaymentService) afterLostOrder(ctx context.Context, appointmentID uuid.UUID, gatewayName string) (*model.OrderHandle, error) {
	current, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := payable(current); err != nil {
		return nil, err
	}

	if current.PaymentOrderID != "" {
		handle, err := s.openOrderHandle(ctx, current, gatewayName)
		if err != nil || handle != nil {
			return handle, err
		}
	}
	return nil, fmt.Errorf("%w: record payment order for %s lost update", ErrPersistence, appointmentID)
}

// openOrder вызывает шлюз под своим таймаутом, запись в хранилище идёт уже под ctx запроса
func (s *PaymentService) openOrder(ctx context.Context, gw payment.Gateway, amountMinor int64, reference string) (*payment.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	order, err := gw.OpenOrder(ctx, amountMinor, s.currency, reference)
	metrics.GatewayLatency.WithLabelValues(gw.Name(), "open_order").Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	if order == nil || order.ID == "" {
		return nil, errors.New("empty order")
	}
	return order, nil
}

// Verify сверяет оплату со шлюзом и переводит запись в paid ровно один раз
func (s *PaymentService) Verify(ctx context.Context, appointmentID uuid.UUID, ev model.PaymentEvidence) (*model.Settlement, error) {
	settlement, err := s.verify(ctx, appointmentID, ev)

	outcome := ErrorCode(err)
	if settlement != nil {
		outcome = string(settlement.Outcome)
	}
	metrics.Settlements.WithLabelValues(gatewayLabel(ev.Gateway), outcome).Inc()

	return settlement, err
}

func (s *PaymentService) verify(ctx context.Context, appointmentID uuid.UUID, ev model.PaymentEvidence) (*model.Settlement, error) {
	appt, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	// Отменённая запись не оплачивается, что бы ни ответил шлюз
	if appt.Cancelled() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCancelled, appointmentID)
	}

	if ev.Success != nil && !*ev.Success {
		return settlement(appointmentID, model.OutcomePaymentFailed), nil
	}

	gatewayName, orderID := ev.Gateway, ev.OrderID
	if gatewayName == "" {
		gatewayName = appt.PaymentGateway
	}
	if orderID == "" && gatewayName == appt.PaymentGateway {
		orderID = appt.PaymentOrderID
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	status, err := s.fetchStatus(ctx, gw, orderID)
	if err != nil {
		s.logger.Warn("Gateway failed to report order status",
			zap.String("gateway", gw.Name()),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if status.Reference != appt.ID.String() {
		return nil, fmt.Errorf("%w: order %s belongs to %q", ErrValidation, orderID, status.Reference)
	}

	if status.Status != payment.StatusPaid {
		return settlement(appointmentID, model.OutcomePaymentFailed), nil
	}

	switch appt.Status {
	case model.AppointmentStatusPaid:
		return settlement(appointmentID, model.OutcomeAlreadySettled), nil
	case model.AppointmentStatusCompleted:
		if appt.Payment() {
			return settlement(appointmentID, model.OutcomeAlreadySettled), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrAppointmentCompleted, appointmentID)
	}

	ok, err := s.appointments.CompareAndSetStatus(ctx, appointmentID,
		[]model.AppointmentStatus{model.AppointmentStatusScheduled}, model.AppointmentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("%w: settle appointment: %w", ErrPersistence, err)
	}
	if !ok {
		return s.afterLostSettle(ctx, appointmentID)
	}

	s.logger.Info("Payment settled",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("gateway", gw.Name()),
		zap.String("order_id", orderID),
	)

	return settlement(appointmentID, model.OutcomeSettled), nil
}

// afterLostSettle перечитывает запись, если её статус изменили параллельно
func (s *PaymentService) afterLostSettle(ctx context.Context, appointmentID uuid.UUID) (*model.Settlement, error) {
	current, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.Cancelled():
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCancelled, appointmentID)
	case current.Payment():
		return settlement(appointmentID, model.OutcomeAlreadySettled), nil
	case current.IsCompleted():
		return nil, fmt.Errorf("%w: %s", ErrAppointmentCompleted, appointmentID)
	default:
		return nil, fmt.Errorf("%w: settle appointment %s lost update in status %s", ErrPersistence, appointmentID, current.Status)
	}
}

// HandleWebhook сверяет оплату по уведомлению шлюза.
// Уведомления не об оплате игнорируются, статус всё равно перепроверяется в шлюзе.
func (s *PaymentService) HandleWebhook(ctx context.Context, event *payment.WebhookEvent) (*model.Settlement, error) {
	if event == nil || !event.Paid {
		return nil, nil
	}

	appointmentID, err := uuid.Parse(event.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: webhook reference %q", ErrValidation, event.Reference)
	}

	return s.Verify(ctx, appointmentID, model.PaymentEvidence{
		Gateway: event.Gateway,
		OrderID: event.OrderID,
	})
}

func (s *PaymentService) fetchStatus(ctx context.Context, gw payment.Gateway, orderID string) (*payment.OrderStatus, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	status, err := gw.FetchStatus(ctx, orderID)
	metrics.GatewayLatency.WithLabelValues(gw.Name(), "fetch_status").Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, errors.New("empty order status")
	}
	return status, nil
}

func (s *PaymentService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PaymentService) load(ctx context.Context, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: get appointment: %w", ErrPersistence, err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	return appt, nil
}

func settlement(appointmentID uuid.UUID, outcome model.SettlementOutcome) *model.Settlement {
	return &model.Settlement{AppointmentID: appointmentID, Outcome: outcome}
}

func gatewayLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
