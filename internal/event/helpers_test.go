package event

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/modifier"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/notify"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
)

var (
	jan1  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb1  = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1  = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// store is an in-memory implementation of every store the processors use.
type store struct {
	mu      sync.Mutex
	subs    map[int64]*domain.Subscription
	orders  map[int64]*domain.Order
	refunds []*domain.Refund
	nextID  int64
}

func newStore() *store {
	return &store{
		subs:   map[int64]*domain.Subscription{},
		orders: map[int64]*domain.Order{},
		nextID: 500,
	}
}

func (s *store) putSub(sub *domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs[sub.ID] = &cp
}

func (s *store) putOrder(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
}

func (s *store) sub(id int64) *domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.subs[id]
	return &cp
}

func (s *store) order(id int64) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.orders[id]
	return &cp
}

func (s *store) renewalOrders(subscriptionID int64) []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(lo.Values(s.orders), func(o *domain.Order, _ int) bool {
		return o.ParentSubscriptionID != nil && *o.ParentSubscriptionID == subscriptionID
	})
}

func (s *store) Get(_ context.Context, id int64) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *store) FindByTransactionID(_ context.Context, id string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if id != "" && sub.TransactionID == id {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (s *store) ListByOrder(_ context.Context, orderID int64) ([]*domain.Subscription, error) {
	return s.filter(func(sub *domain.Subscription) bool { return sub.FirstOrderID == orderID }), nil
}

func (s *store) List(_ context.Context, filter domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	return s.filter(func(sub *domain.Subscription) bool {
		if filter.Mode != "" && sub.Mode != filter.Mode {
			return false
		}
		return len(filter.Statuses) == 0 || lo.Contains(filter.Statuses, sub.Status)
	}), nil
}

func (s *store) filter(keep func(*domain.Subscription) bool) []*domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Subscription
	for _, sub := range s.subs {
		if keep(sub) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out
}

func (s *store) Create(_ context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.ID = s.nextID
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *store) Update(_ context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *store) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *store) FindOrderByPaymentIntentID(_ context.Context, pi string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if pi != "" && o.TransactionID == pi {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *store) FindRenewalOrderByPaymentIntentID(ctx context.Context, pi string) (*domain.Order, error) {
	o, err := s.FindOrderByPaymentIntentID(ctx, pi)
	if err != nil {
		return nil, err
	}
	if !o.IsRenewal() {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *store) CreateRenewalOrder(_ context.Context, r domain.RenewalOrder) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.TransactionID == r.PaymentIntentID {
			return nil, domain.ErrRenewalAlreadyExists
		}
	}
	s.nextID++
	parent := r.SubscriptionID
	o := &domain.Order{
		ID:                   s.nextID,
		CustomerID:           r.CustomerID,
		Status:               r.Status,
		PaymentMethod:        r.PaymentMethod,
		TransactionID:        r.PaymentIntentID,
		ChargeID:             r.ChargeID,
		Total:                r.Total,
		Currency:             r.Currency,
		Mode:                 r.Mode,
		ParentSubscriptionID: &parent,
	}
	s.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (s *store) LinkRenewalOrder(_ context.Context, orderID, subscriptionID int64) error {
	return s.mutateOrder(orderID, func(o *domain.Order) { o.ParentSubscriptionID = &subscriptionID })
}

func (s *store) SetTransactionID(_ context.Context, orderID int64, id string) error {
	return s.mutateOrder(orderID, func(o *domain.Order) { o.TransactionID = id })
}

func (s *store) SetChargeID(_ context.Context, orderID int64, id string) error {
	return s.mutateOrder(orderID, func(o *domain.Order) { o.ChargeID = id })
}

func (s *store) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	return s.mutateOrder(orderID, func(o *domain.Order) { o.Status = status })
}

func (s *store) mutateOrder(id int64, fn func(*domain.Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	fn(o)
	return nil
}

func (s *store) AddOrderNote(context.Context, domain.OrderNote) error { return nil }

func (s *store) FindRefundByRemoteID(_ context.Context, id string) (*domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.refunds {
		if r.RemoteRefundID == id {
			return r, nil
		}
	}
	return nil, domain.ErrRefundNotFound
}

func (s *store) CreateRefund(_ context.Context, refund *domain.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.refunds {
		if r.RemoteRefundID == refund.RemoteRefundID {
			return domain.ErrDuplicateRefund
		}
	}
	refund.ID = int64(len(s.refunds) + 1)
	s.refunds = append(s.refunds, refund)
	return nil
}

func (s *store) UpdateRefundStatus(_ context.Context, refundID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.refunds {
		if r.ID == refundID {
			r.Status = status
			return nil
		}
	}
	return domain.ErrRefundNotFound
}

func (s *store) SumRefunded(_ context.Context, orderID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, r := range s.refunds {
		if r.OrderID == orderID && !domain.RefundVoided(r.Status) {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

// notes records notifications.
type notes struct {
	notify.Nop
	mu      sync.Mutex
	events  []string
	changes []notify.StatusChange
	texts   []string
}

func (n *notes) StatusChanged(_ context.Context, c notify.StatusChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "status_changed")
	n.changes = append(n.changes, c)
}

func (n *notes) ScheduleCreated(context.Context, *domain.Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "schedule_created")
}

func (n *notes) CancellationScheduled(context.Context, *domain.Subscription, domain.Actor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "cancellation_scheduled")
}

func (n *notes) OrderNote(_ context.Context, note domain.OrderNote) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "order_note")
	n.texts = append(n.texts, note.Note)
}

type fixture struct {
	store   *store
	gateway *billing.MockGateway
	notes   *notes
	tracker *modifier.Tracker
	svc     *service.SubscriptionService
	deps    Deps
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:   newStore(),
		gateway: billing.NewMockGateway(),
		notes:   &notes{},
		tracker: modifier.NewTracker(time.Minute),
	}
	f.svc = service.NewSubscriptionService(service.Dependencies{
		Subscriptions: f.store,
		Orders:        f.store,
		Gateway:       f.gateway,
		Calculator:    schedule.NewCalculator(func() time.Time { return now }),
		Tracker:       f.tracker,
		Notifier:      f.notes,
		Logger:        discardLogger(),
	})
	f.deps = Deps{
		Subscriptions: f.store,
		Orders:        f.store,
		Renewals:      f.store,
		Refunds:       f.store,
		Lifecycle:     f.svc,
		Notifier:      f.notes,
		Logger:        discardLogger(),
	}
	return f
}

func (f *fixture) dispatch(t *testing.T, env *Envelope) (*Response, error) {
	t.Helper()
	return NewStripeDispatcher(f.deps).Dispatch(context.Background(), env)
}

// envelope builds a test-mode event around object.
func envelope(t *testing.T, id, eventType string, object map[string]any) *Envelope {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return NewEnvelope(id, eventType, false, raw)
}

func intPtr(v int) *int { return &v }

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

func pendingOrder(id int64, pi string) *domain.Order {
	return &domain.Order{
		ID:            id,
		CustomerID:    7,
		Status:        domain.OrderPending,
		PaymentMethod: DefaultGatewayID,
		TransactionID: pi,
		Total:         decimal.RequireFromString("25.00"),
		Currency:      "usd",
		Mode:          domain.ModeTest,
	}
}
