package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// bookAndOrder записывает пациента и открывает заказ на оплату
func bookAndOrder(t *testing.T, f *fixture) (*model.User, *model.Appointment, *model.OrderHandle) {
	t.Helper()
	ctx := context.Background()
	doctor := f.doctors.add(true, "500.50")
	u := f.users.add("ravi")

	appt, err := f.booking.Book(ctx, BookRequest{UserID: u.ID, DoctorID: doctor.ID, Date: "2024-01-10", Time: "10:00"})
	require.NoError(t, err)

	handle, err := f.payments.CreateOrder(ctx, appt.ID, "")
	require.NoError(t, err)
	return u, appt, handle
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	_, appt, handle := bookAndOrder(t, f)

	assert.Equal(t, "razorpay", handle.Gateway)
	assert.Equal(t, int64(50050), handle.AmountMinor)
	assert.Equal(t, "INR", handle.Currency)

	stored, err := f.appointments.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "razorpay", stored.PaymentGateway)
	assert.Equal(t, handle.OrderID, stored.PaymentOrderID)
}

func TestCreateOrder_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u, appt, handle := bookAndOrder(t, f)

	_, err := f.payments.CreateOrder(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.payments.CreateOrder(ctx, appt.ID, "paypal")
	assert.ErrorIs(t, err, ErrValidation)

	f.gateway.markPaid(handle.OrderID)
	_, err = f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	require.NoError(t, err)

	_, err = f.payments.CreateOrder(ctx, appt.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	require.NoError(t, f.cancellation.Cancel(ctx, patient(u), appt.ID))
	_, err = f.payments.CreateOrder(ctx, appt.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, CodeAlreadyCancelled, ErrorCode(err))
}

func TestCreateOrder_GatewayError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doctor := f.doctors.add(true, "500")
	u := f.users.add("ravi")
	appt, err := f.booking.Book(ctx, BookRequest{UserID: u.ID, DoctorID: doctor.ID, Date: "2024-01-10", Time: "10:00"})
	require.NoError(t, err)

	f.gateway.openErr = errors.New("503 service unavailable")
	_, err = f.payments.CreateOrder(ctx, appt.ID, "")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, CodeGateway, ErrorCode(err))

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PaymentOrderID)
}

func TestCreateOrder_CancelledWhileOpening(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doctor := f.doctors.add(true, "500")
	u := f.users.add("ravi")
	appt, err := f.booking.Book(ctx, BookRequest{UserID: u.ID, DoctorID: doctor.ID, Date: "2024-01-10", Time: "10:00"})
	require.NoError(t, err)

	var cancelErr error
	f.gateway.onOpen = func() {
		cancelErr = f.cancellation.Cancel(ctx, patient(u), appt.ID)
	}

	_, err = f.payments.CreateOrder(ctx, appt.ID, "")
	require.NoError(t, cancelErr)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	assert.Empty(t, stored.PaymentGateway)
	assert.Empty(t, stored.PaymentOrderID)
}

func TestCreateOrder_ReusesOpenOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, first := bookAndOrder(t, f)

	second, err := f.payments.CreateOrder(ctx, appt.ID, "razorpay")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.AmountMinor, second.AmountMinor)
	assert.Equal(t, "INR", second.Currency)
	assert.Equal(t, 1, f.gateway.opened())
}

func TestCreateOrder_ReplacesFailedOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, first := bookAndOrder(t, f)
	f.gateway.markFailed(first.OrderID)

	second, err := f.payments.CreateOrder(ctx, appt.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 2, f.gateway.opened())

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, second.OrderID, stored.PaymentOrderID)
}

func TestCreateOrder_PaidOrderNotVerified(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	_, err := f.payments.CreateOrder(ctx, appt.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, 1, f.gateway.opened())
}

func TestCreateOrder_OpenOrderCheckFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, _ := bookAndOrder(t, f)
	f.gateway.fetchErr = errors.New("timeout")

	_, err := f.payments.CreateOrder(ctx, appt.ID, "")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, 1, f.gateway.opened())
}

func TestCreateOrder_OpenOrderOnOtherGateway(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	stripe := newMockGateway("stripe")
	registry, err := payment.NewRegistry("razorpay", f.gateway, stripe)
	require.NoError(t, err)
	f.payments = NewPaymentService(f.appointments, registry, "INR", time.Second, zap.NewNop())

	_, appt, first := bookAndOrder(t, f)

	_, err = f.payments.CreateOrder(ctx, appt.ID, "stripe")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, stripe.opened())

	f.gateway.markFailed(first.OrderID)
	handle, err := f.payments.CreateOrder(ctx, appt.ID, "stripe")
	require.NoError(t, err)
	assert.Equal(t, "stripe", handle.Gateway)

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "stripe", stored.PaymentGateway)
	assert.Equal(t, handle.OrderID, stored.PaymentOrderID)
}

func TestCreateOrder_RecordOutlivesGatewayDeadline(t *testing.T) {
	f := newFixture()
	bookAndOrder(t, f)

	orderCtx := f.appointments.lastOrderCtx()
	require.NotNil(t, orderCtx)
	_, hasDeadline := orderCtx.Deadline()
	assert.False(t, hasDeadline)
	assert.NoError(t, orderCtx.Err())
}

func TestCreateOrder_Concurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doctor := f.doctors.add(true, "500")
	u := f.users.add("ravi")
	appt, err := f.booking.Book(ctx, BookRequest{UserID: u.ID, DoctorID: doctor.ID, Date: "2024-01-10", Time: "10:00"})
	require.NoError(t, err)

	const workers = 8
	handles := make([]*model.OrderHandle, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = f.payments.CreateOrder(ctx, appt.ID, "")
		}(i)
	}
	wg.Wait()

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PaymentOrderID)

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, stored.PaymentOrderID, handles[i].OrderID)
	}
}

func TestVerify_SettlesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	evidence := model.PaymentEvidence{Gateway: "razorpay", OrderID: handle.OrderID}

	res, err := f.payments.Verify(ctx, appt.ID, evidence)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSettled, res.Outcome)

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Payment())
	assert.Equal(t, model.AppointmentStatusPaid, stored.Status)
	paidAt := *stored.PaidAt

	res, err = f.payments.Verify(ctx, appt.ID, evidence)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadySettled, res.Outcome)

	stored, err = f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, paidAt, *stored.PaidAt)
}

func TestVerify_CancelledAfterPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	_, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	require.NoError(t, err)

	require.NoError(t, f.cancellation.Cancel(ctx, patient(u), appt.ID))

	calls := f.gateway.calls()
	_, err = f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, calls, f.gateway.calls())

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Payment(), "payment survives cancellation")
}

func TestVerify_CancelledNeverSettles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	require.NoError(t, f.cancellation.Cancel(ctx, patient(u), appt.ID))

	_, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, stored.Payment())
}

func TestVerify_ClientAssertedFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)

	res, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID, Success: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePaymentFailed, res.Outcome)
	assert.Equal(t, 0, f.gateway.calls())
}

func TestVerify_Unpaid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)

	res, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID, Success: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePaymentFailed, res.Outcome)

	stored, err := f.appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, stored.Status)
}

func TestVerify_GatewayErrorLeavesStateUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)
	f.gateway.fetchErr = errors.New("timeout")

	casBefore := f.appointments.casCalls
	_, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	assert.ErrorIs(t, err, ErrGateway)
	assert.Equal(t, casBefore, f.appointments.casCalls)

	// повтор после восстановления шлюза проходит
	f.gateway.fetchErr = nil
	res, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSettled, res.Outcome)
}

func TestVerify_OrderOfAnotherAppointment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	doctor := f.doctors.add(true, "300")
	u := f.users.add("meera")
	other, err := f.booking.Book(ctx, BookRequest{UserID: u.ID, DoctorID: doctor.ID, Date: "2024-01-11", Time: "09:00"})
	require.NoError(t, err)

	_, err = f.payments.Verify(ctx, other.ID, model.PaymentEvidence{Gateway: "razorpay", OrderID: handle.OrderID})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.appointments.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, stored.Payment())
}

func TestVerify_ConcurrentSettlesExactlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)
	f.gateway.markPaid(handle.OrderID)

	const n = 16
	outcomes := make(chan model.SettlementOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.payments.Verify(ctx, appt.ID, model.PaymentEvidence{OrderID: handle.OrderID})
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	settled := 0
	for o := range outcomes {
		if o == model.OutcomeSettled {
			settled++
		} else {
			assert.Equal(t, model.OutcomeAlreadySettled, o)
		}
	}
	assert.Equal(t, 1, settled)
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, appt, handle := bookAndOrder(t, f)

	res, err := f.payments.HandleWebhook(ctx, &payment.WebhookEvent{Gateway: "razorpay", OrderID: handle.OrderID, Reference: appt.ID.String()})
	require.NoError(t, err)
	assert.Nil(t, res)

	f.gateway.markPaid(handle.OrderID)
	res, err = f.payments.HandleWebhook(ctx, &payment.WebhookEvent{Gateway: "razorpay", OrderID: handle.OrderID, Reference: appt.ID.String(), Paid: true})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSettled, res.Outcome)

	_, err = f.payments.HandleWebhook(ctx, &payment.WebhookEvent{Gateway: "razorpay", OrderID: handle.OrderID, Reference: "not-a-uuid", Paid: true})
	assert.ErrorIs(t, err, ErrValidation)
}
