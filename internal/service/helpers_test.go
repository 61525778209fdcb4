package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing/mocks"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/modifier"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
)

var (
	jan1  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb1  = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory subscription, order and refund store.
type memStore struct {
	mu      sync.Mutex
	subs    map[int64]*domain.Subscription
	orders  map[int64]*domain.Order
	refunds []*domain.Refund
	notes   []domain.OrderNote
	nextID  int64
	updates int

	// updateErr fails every subscription write when set.
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		subs:   map[int64]*domain.Subscription{},
		orders: map[int64]*domain.Order{},
		nextID: 1000,
	}
}

func (m *memStore) put(sub *domain.Subscription) *domain.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[sub.ID] = &cp
	return sub
}

func (m *memStore) stored(id int64) *domain.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.subs[id]
	return &cp
}

func (m *memStore) Get(_ context.Context, id int64) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound.WithOp("subscription.get")
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) FindByTransactionID(_ context.Context, transactionID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if transactionID != "" && s.TransactionID == transactionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (m *memStore) ListByOrder(_ context.Context, orderID int64) ([]*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subscription
	for _, s := range m.subs {
		if s.FirstOrderID == orderID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, filter domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subscription
	for _, s := range m.subs {
		if filter.Mode != "" && s.Mode != filter.Mode {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub.ID = m.nextID
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.subs[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	cp := *sub
	m.subs[sub.ID] = &cp
	m.updates++
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) FindOrderByPaymentIntentID(_ context.Context, pi string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if pi != "" && o.TransactionID == pi {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *memStore) SetTransactionID(_ context.Context, orderID int64, id string) error {
	return m.mutateOrder(orderID, func(o *domain.Order) { o.TransactionID = id })
}

func (m *memStore) SetChargeID(_ context.Context, orderID int64, id string) error {
	return m.mutateOrder(orderID, func(o *domain.Order) { o.ChargeID = id })
}

func (m *memStore) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	return m.mutateOrder(orderID, func(o *domain.Order) { o.Status = status })
}

func (m *memStore) mutateOrder(id int64, fn func(*domain.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	fn(o)
	return nil
}

func (m *memStore) AddOrderNote(_ context.Context, note domain.OrderNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

func (m *memStore) FindRefundByRemoteID(_ context.Context, id string) (*domain.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		if r.RemoteRefundID == id {
			return r, nil
		}
	}
	return nil, domain.ErrRefundNotFound
}

func (m *memStore) CreateRefund(_ context.Context, refund *domain.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		if r.RemoteRefundID == refund.RemoteRefundID {
			return domain.ErrDuplicateRefund
		}
	}
	refund.ID = int64(len(m.refunds) + 1)
	m.refunds = append(m.refunds, refund)
	return nil
}

func (m *memStore) UpdateRefundStatus(_ context.Context, refundID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.refunds {
		if r.ID == refundID {
			r.Status = status
			return nil
		}
	}
	return domain.ErrRefundNotFound
}

func (m *memStore) SumRefunded(_ context.Context, orderID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, r := range m.refunds {
		if r.OrderID == orderID && !domain.RefundVoided(r.Status) {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

// recordingNotifier remembers the order of notifications.
type recordingNotifier struct {
	notify.Nop
	mu      sync.Mutex
	events  []string
	changes []notify.StatusChange
}

func (r *recordingNotifier) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) StatusChanged(_ context.Context, c notify.StatusChange) {
	r.add("status_changed")
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recordingNotifier) ScheduleCreated(context.Context, *domain.Subscription) {
	r.add("schedule_created")
}

func (r *recordingNotifier) CancellationScheduling(context.Context, *domain.Subscription, domain.Actor) {
	r.add("cancellation_scheduling")
}

func (r *recordingNotifier) CancellationScheduled(context.Context, *domain.Subscription, domain.Actor) {
	r.add("cancellation_scheduled")
}

func (r *recordingNotifier) OrderNote(context.Context, domain.OrderNote) {
	r.add("order_note")
}

type fixture struct {
	store    *memStore
	gateway  *mocks.MockGateway
	notifier *recordingNotifier
	tracker  *modifier.Tracker
	svc      *SubscriptionService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:    newMemStore(),
		gateway:  mocks.NewMockGateway(ctrl),
		notifier: &recordingNotifier{},
		tracker:  modifier.NewTracker(time.Minute),
	}
	f.svc = NewSubscriptionService(Dependencies{
		Subscriptions: f.store,
		Orders:        f.store,
		Gateway:       f.gateway,
		Calculator:    schedule.NewCalculator(func() time.Time { return now }),
		Tracker:       f.tracker,
		Notifier:      f.notifier,
		Logger:        discardLogger(),
	})
	return f
}

func activeSubscription(id int64, transactionID string) *domain.Subscription {
	next := feb1
	started := jan1
	return &domain.Subscription{
		ID:              id,
		CustomerID:      7,
		FirstOrderID:    100,
		Period:          schedule.PeriodMonth,
		Frequency:       1,
		BilledCount:     1,
		RecurringAmount: decimal.RequireFromString("20.00"),
		CurrencyCode:    "usd",
		TransactionID:   transactionID,
		Status:          domain.StatusActive,
		Mode:            domain.ModeTest,
		Source:          domain.SourceStripe,
		CreatedAt:       jan1,
		StartedAt:       &started,
		NextBillingAt:   &next,
	}
}
