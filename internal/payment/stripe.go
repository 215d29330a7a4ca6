package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const GatewayStripe = "stripe"

// AppointmentPlaceholder подставляется в success/cancel URL
const AppointmentPlaceholder = "{APPOINTMENT_ID}"

type stripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	ProductName   string
}

// Stripe шлюз в стиле "заказ + подтверждение клиентом": клиент
// возвращается с success-флагом, статус сессии перепроверяется в API.
type Stripe struct {
	sessions      stripeSessions
	webhookSecret string
	successURL    string
	cancelURL     string
	productName   string
}

func NewStripe(cfg StripeConfig) *Stripe {
	sc := client.New(cfg.SecretKey, nil)
	return newStripe(sc.CheckoutSessions, cfg)
}

func newStripe(sessions stripeSessions, cfg StripeConfig) *Stripe {
	productName := cfg.ProductName
	if productName == "" {
		productName = "Appointment Fees"
	}
	return &Stripe{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		productName:   productName,
	}
}

func (s *Stripe) Name() string { return GatewayStripe }

// OpenOrder создаёт Checkout Session; client_reference_id - идентификатор записи
func (s *Stripe) OpenOrder(ctx context.Context, amountMinor int64, currency, reference string) (*Order, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(strings.ReplaceAll(s.successURL, AppointmentPlaceholder, reference)),
		CancelURL:         stripe.String(strings.ReplaceAll(s.cancelURL, AppointmentPlaceholder, reference)),
		ClientReferenceID: stripe.String(reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(s.productName),
					},
					UnitAmount: stripe.Int64(amountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session: %w", err)
	}
	if sess == nil || sess.ID == "" {
		return nil, fmt.Errorf("%w: stripe session without id", ErrUnexpectedResponse)
	}

	return &Order{
		ID:          sess.ID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Reference:   reference,
		CheckoutURL: sess.URL,
	}, nil
}

func (s *Stripe) FetchStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.sessions.Get(orderID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: empty stripe session", ErrUnexpectedResponse)
	}

	return &OrderStatus{
		OrderID:     sess.ID,
		Status:      stripeStatus(sess),
		Reference:   sess.ClientReferenceID,
		AmountMinor: sess.AmountTotal,
		CheckoutURL: sess.URL,
	}, nil
}

func stripeStatus(sess *stripe.CheckoutSession) Status {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusPaid
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return StatusFailed
	default:
		return StatusUnpaid
	}
}

// ParseWebhook проверяет Stripe-Signature и разбирает checkout.session.completed
func (s *Stripe) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(body, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode stripe session: %v", ErrUnexpectedResponse, err)
	}

	return &WebhookEvent{
		Gateway:   GatewayStripe,
		OrderID:   sess.ID,
		Reference: sess.ClientReferenceID,
		Paid: event.Type == "checkout.session.completed" &&
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
