package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const GatewayRazorpay = "razorpay"

// razorpayOrders часть API заказов razorpay-go, которая нам нужна
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Razorpay шлюз в стиле "заказ + вебхук/опрос": статус заказа
// проверяется запросом к API по order id.
type Razorpay struct {
	orders        razorpayOrders
	webhookSecret string
}

func NewRazorpay(cfg RazorpayConfig) *Razorpay {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &Razorpay{
		orders:        client.Order,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (r *Razorpay) Name() string { return GatewayRazorpay }

// OpenOrder создаёт заказ; receipt хранит идентификатор записи
func (r *Razorpay) OpenOrder(ctx context.Context, amountMinor int64, currency, reference string) (*Order, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  reference,
	}

	body, err := withContext(ctx, func() (map[string]interface{}, error) {
		return r.orders.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: razorpay order without id", ErrUnexpectedResponse)
	}

	return &Order{
		ID:          id,
		AmountMinor: amountMinor,
		Currency:    currency,
		Reference:   reference,
	}, nil
}

// FetchStatus опрашивает заказ. paid - оплачен, created/attempted - ещё нет.
func (r *Razorpay) FetchStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	body, err := withContext(ctx, func() (map[string]interface{}, error) {
		return r.orders.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}

	rawStatus, _ := body["status"].(string)
	receipt, _ := body["receipt"].(string)
	amount, _ := body["amount"].(float64)

	status, err := razorpayStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	return &OrderStatus{
		OrderID:     orderID,
		Status:      status,
		Reference:   receipt,
		AmountMinor: int64(amount),
	}, nil
}

func razorpayStatus(raw string) (Status, error) {
	switch raw {
	case "paid":
		return StatusPaid, nil
	case "created", "attempted":
		return StatusUnpaid, nil
	default:
		return "", fmt.Errorf("%w: razorpay order status %q", ErrUnexpectedResponse, raw)
	}
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Order struct {
			Entity struct {
				ID      string `json:"id"`
				Receipt string `json:"receipt"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseWebhook проверяет подпись X-Razorpay-Signature и разбирает событие
func (r *Razorpay) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if r.webhookSecret == "" || !utils.VerifyWebhookSignature(string(body), signature, r.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: decode razorpay webhook: %v", ErrUnexpectedResponse, err)
	}

	order := hook.Payload.Order.Entity
	return &WebhookEvent{
		Gateway:   GatewayRazorpay,
		OrderID:   order.ID,
		Reference: order.Receipt,
		Paid:      hook.Event == "order.paid" && order.Status == "paid",
	}, nil
}
