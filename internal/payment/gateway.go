// Package payment abstracts external payment gateways behind one contract:
// open a payable order and fetch its status.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownGateway     = errors.New("payment: unknown gateway")
	ErrUnexpectedResponse = errors.New("payment: unexpected response from gateway")
	ErrInvalidSignature   = errors.New("payment: invalid webhook signature")
)

type Status string

const (
	StatusPaid   Status = "paid"
	StatusUnpaid Status = "unpaid"
	StatusFailed Status = "failed"
)

// Order открытый в шлюзе заказ
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Reference   string
	CheckoutURL string
}

// OrderStatus состояние заказа по данным шлюза
type OrderStatus struct {
	OrderID     string
	Status      Status
	Reference   string // идентификатор записи, переданный при создании заказа
	AmountMinor int64
	CheckoutURL string
}

// Gateway общий контракт платёжного шлюза
type Gateway interface {
	Name() string
	OpenOrder(ctx context.Context, amountMinor int64, currency, reference string) (*Order, error)
	FetchStatus(ctx context.Context, orderID string) (*OrderStatus, error)
}

// WebhookEvent нормализованное уведомление шлюза об оплате
type WebhookEvent struct {
	Gateway   string
	OrderID   string
	Reference string
	Paid      bool
}

// Registry набор настроенных шлюзов с шлюзом по умолчанию
type Registry struct {
	gateways    map[string]Gateway
	defaultName string
}

func NewRegistry(defaultName string, gateways ...Gateway) (*Registry, error) {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Name()] = gw
	}

	if defaultName == "" && len(gateways) > 0 {
		defaultName = gateways[0].Name()
	}
	if _, ok := r.gateways[defaultName]; !ok && len(gateways) > 0 {
		return nil, fmt.Errorf("%w: default %q is not configured", ErrUnknownGateway, defaultName)
	}
	r.defaultName = defaultName

	return r, nil
}

// Get возвращает шлюз по имени; пустое имя - шлюз по умолчанию
func (r *Registry) Get(name string) (Gateway, error) {
	if name == "" {
		name = r.defaultName
	}
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}
	return gw, nil
}

// Names список настроенных шлюзов
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// withContext ограничивает блокирующий вызов SDK без поддержки context.
// По дедлайну горутина с вызовом SDK остаётся доработать сама: done буферизован,
// поэтому она не зависает на отправке и утечка ограничена длительностью запроса.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	done := make(chan result, 1)
	go func() {
		val, err := call()
		done <- result{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
