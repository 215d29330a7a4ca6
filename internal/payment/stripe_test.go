package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeStripeSessions struct {
	lastNew  *stripe.CheckoutSessionParams
	sessions map[string]*stripe.CheckoutSession
}

func (f *fakeStripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastNew = params
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (f *fakeStripeSessions) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout.session: %s", id)
	}
	return sess, nil
}

func TestStripe_OpenOrder(t *testing.T) {
	sessions := &fakeStripeSessions{}
	gw := newStripe(sessions, StripeConfig{
		SuccessURL: "https://clinic.test/verify?success=true&appointmentId={APPOINTMENT_ID}",
		CancelURL:  "https://clinic.test/verify?success=false&appointmentId={APPOINTMENT_ID}",
	})

	order, err := gw.OpenOrder(context.Background(), 2500, "USD", "appt-7")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", order.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", order.CheckoutURL)

	params := sessions.lastNew
	require.NotNil(t, params)
	assert.Equal(t, "appt-7", *params.ClientReferenceID)
	assert.Equal(t, "https://clinic.test/verify?success=true&appointmentId=appt-7", *params.SuccessURL)
	assert.Equal(t, "https://clinic.test/verify?success=false&appointmentId=appt-7", *params.CancelURL)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(2500), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "Appointment Fees", *params.LineItems[0].PriceData.ProductData.Name)
}

func TestStripe_FetchStatus(t *testing.T) {
	sessions := &fakeStripeSessions{sessions: map[string]*stripe.CheckoutSession{
		"cs_paid":    {ID: "cs_paid", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid, ClientReferenceID: "appt-1", AmountTotal: 2500},
		"cs_open":    {ID: "cs_open", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusOpen},
		"cs_expired": {ID: "cs_expired", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusExpired},
	}}
	gw := newStripe(sessions, StripeConfig{})
	ctx := context.Background()

	st, err := gw.FetchStatus(ctx, "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, st.Status)
	assert.Equal(t, "appt-1", st.Reference)

	st, err = gw.FetchStatus(ctx, "cs_open")
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, st.Status)

	st, err = gw.FetchStatus(ctx, "cs_expired")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)

	_, err = gw.FetchStatus(ctx, "cs_missing")
	assert.Error(t, err)
}

func signStripe(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripe_ParseWebhook(t *testing.T) {
	gw := newStripe(&fakeStripeSessions{}, StripeConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_paid", "object": "checkout.session", "client_reference_id": "appt-3", "payment_status": "paid"}}
	}`)

	event, err := gw.ParseWebhook(payload, signStripe(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, GatewayStripe, event.Gateway)
	assert.Equal(t, "cs_paid", event.OrderID)
	assert.Equal(t, "appt-3", event.Reference)
	assert.True(t, event.Paid)

	_, err = gw.ParseWebhook(payload, signStripe(payload, "wrong", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
