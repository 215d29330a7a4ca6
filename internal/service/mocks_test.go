package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =========== Mock Doctor Store ===========

type mockDoctorStore struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*model.Doctor
}

func newMockDoctorStore() *mockDoctorStore {
	return &mockDoctorStore{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (m *mockDoctorStore) add(available bool, fees string) *model.Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &model.Doctor{
		ID:         uuid.New(),
		Name:       "Dr. Rao",
		Speciality: "Dermatologist",
		Fees:       decimal.RequireFromString(fees),
		Available:  available,
	}
	m.doctors[d.ID] = d
	return d
}

func (m *mockDoctorStore) GetByID(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorStore) SetAvailable(_ context.Context, id uuid.UUID, available bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return false, nil
	}
	d.Available = available
	return true, nil
}

// =========== Mock User Store ===========

type mockUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserStore) add(name string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: model.RolePatient}
	m.users[u.ID] = u
	return u
}

func (m *mockUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStore) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return errors.New("user not found")
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// =========== Mock Appointment Store ===========

type mockAppointmentStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	createErr    error
	casCalls     int
	orderCtx     context.Context
}

func newMockAppointmentStore() *mockAppointmentStore {
	return &mockAppointmentStore{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (m *mockAppointmentStore) Create(_ context.Context, appt *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *appt
	m.appointments[appt.ID] = &cp
	return nil
}

func (m *mockAppointmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentStore) CompareAndSetStatus(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	a, ok := m.appointments[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if a.Status == st {
			return true, a.Transition(to, time.Now())
		}
	}
	return false, nil
}

func (m *mockAppointmentStore) SetPaymentOrder(ctx context.Context, id uuid.UUID, prevOrderID, gateway, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderCtx = ctx
	a, ok := m.appointments[id]
	if !ok {
		return false, nil
	}
	if a.Status != model.AppointmentStatusScheduled || a.PaymentOrderID != prevOrderID {
		return false, nil
	}
	a.PaymentGateway = gateway
	a.PaymentOrderID = orderID
	return true, nil
}

// lastOrderCtx контекст последнего вызова SetPaymentOrder
func (m *mockAppointmentStore) lastOrderCtx() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderCtx
}

func (m *mockAppointmentStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Appointment
	for _, a := range m.appointments {
		if a.UserID == userID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockAppointmentStore) ListCancelledSince(_ context.Context, since time.Time) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Appointment
	for _, a := range m.appointments {
		if a.Status == model.AppointmentStatusCancelled && !a.UpdatedAt.Before(since) {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockAppointmentStore) HasHolder(_ context.Context, slot model.SlotKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.Slot() == slot && a.Status != model.AppointmentStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAppointmentStore) activeCount(slot model.SlotKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appointments {
		if a.Slot() == slot && a.Status.IsActive() {
			n++
		}
	}
	return n
}

func (m *mockAppointmentStore) put(appt *model.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *appt
	m.appointments[appt.ID] = &cp
}

// =========== Mock Availability Store ===========

type mockAvailabilityStore struct {
	mu     sync.Mutex
	nextID int64
	slots  []*model.AvailabilitySlot
}

func (m *mockAvailabilityStore) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.AvailabilitySlot
	for _, s := range m.slots {
		if s.DoctorID == doctorID {
			cp := *s
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockAvailabilityStore) Create(_ context.Context, slot *model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	slot.ID = m.nextID
	cp := *slot
	m.slots = append(m.slots, &cp)
	return nil
}

func (m *mockAvailabilityStore) Delete(_ context.Context, doctorID uuid.UUID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slots {
		if s.ID == id && s.DoctorID == doctorID {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// =========== Flaky Slot Store ===========

// flakySlotStore оборачивает MemorySlotStore и считает/ломает Release
type flakySlotStore struct {
	*MemorySlotStore
	releases   atomic.Int32
	releaseErr error
}

func (f *flakySlotStore) Release(ctx context.Context, doctorID uuid.UUID, date, slotTime string) error {
	f.releases.Add(1)
	if f.releaseErr != nil {
		return f.releaseErr
	}
	return f.MemorySlotStore.Release(ctx, doctorID, date, slotTime)
}

// =========== Mock Gateway ===========

type mockGateway struct {
	name string

	mu         sync.Mutex
	orders     map[string]*payment.OrderStatus
	nextID     int
	fetchErr   error
	openErr    error
	fetchCalls int

	// onOpen вызывается после открытия заказа, до возврата из OpenOrder
	onOpen func()
}

func newMockGateway(name string) *mockGateway {
	return &mockGateway{name: name, orders: make(map[string]*payment.OrderStatus)}
}

func (g *mockGateway) Name() string { return g.name }

func (g *mockGateway) OpenOrder(_ context.Context, amountMinor int64, currency, reference string) (*payment.Order, error) {
	g.mu.Lock()
	if g.openErr != nil {
		g.mu.Unlock()
		return nil, g.openErr
	}
	g.nextID++
	id := g.name + "_order_" + strconv.Itoa(g.nextID)
	g.orders[id] = &payment.OrderStatus{OrderID: id, Status: payment.StatusUnpaid, Reference: reference, AmountMinor: amountMinor}
	hook := g.onOpen
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &payment.Order{ID: id, AmountMinor: amountMinor, Currency: currency, Reference: reference}, nil
}

func (g *mockGateway) FetchStatus(_ context.Context, orderID string) (*payment.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	st, ok := g.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *st
	return &cp, nil
}

func (g *mockGateway) markPaid(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID].Status = payment.StatusPaid
}

func (g *mockGateway) markFailed(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID].Status = payment.StatusFailed
}

// opened сколько заказов открыто в шлюзе
func (g *mockGateway) opened() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextID
}

func (g *mockGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchCalls
}

// =========== Fixture ===========

type fixture struct {
	doctors      *mockDoctorStore
	users        *mockUserStore
	appointments *mockAppointmentStore
	templates    *mockAvailabilityStore
	slots        *flakySlotStore
	gateway      *mockGateway
	registry     *payment.Registry

	booking      *BookingService
	cancellation *CancellationService
	payments     *PaymentService
	availability *AvailabilityService
	reconcile    *ReconcileService
}

func newFixture() *fixture {
	logger := zap.NewNop()
	f := &fixture{
		doctors:      newMockDoctorStore(),
		users:        newMockUserStore(),
		appointments: newMockAppointmentStore(),
		templates:    &mockAvailabilityStore{},
		slots:        &flakySlotStore{MemorySlotStore: NewMemorySlotStore()},
		gateway:      newMockGateway("razorpay"),
	}
	f.registry, _ = payment.NewRegistry("razorpay", f.gateway)

	f.booking = NewBookingService(f.doctors, f.users, f.appointments, f.slots, logger)
	f.cancellation = NewCancellationService(f.appointments, f.slots, logger)
	f.payments = NewPaymentService(f.appointments, f.registry, "INR", time.Second, logger)
	f.availability = NewAvailabilityService(f.doctors, f.templates, f.slots, logger)
	f.reconcile = NewReconcileService(f.appointments, f.slots, time.Hour, logger)
	return f
}

func patient(u *model.User) model.Requester {
	return model.Requester{ID: u.ID, Role: model.RolePatient}
}

func boolPtr(b bool) *bool { return &b }
