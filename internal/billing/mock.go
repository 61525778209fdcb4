package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

// MockGateway is a stateful in-memory gateway for testing.
// Simulates successful remote calls without calling the Stripe API.
type MockGateway struct {
	// CancelSubscriptionFunc allows customizing immediate cancellation behavior
	CancelSubscriptionFunc func(ctx context.Context, id string) (*RemoteSubscription, error)

	// CancelAtPeriodEndFunc allows customizing period-end cancellation behavior
	// for both subscriptions and schedules
	CancelAtPeriodEndFunc func(ctx context.Context, id string) (*RemoteSubscription, error)

	// GetUpcomingInvoiceFunc allows customizing invoice previews
	GetUpcomingInvoiceFunc func(ctx context.Context, id string) (*UpcomingInvoice, error)

	// CreateRefundFunc allows customizing refund creation behavior
	CreateRefundFunc func(ctx context.Context, params CreateRefundParams) (*RemoteRefund, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	// Remote stores the gateway-side state of subscriptions and schedules
	Remote map[string]*RemoteSubscription

	// Refunds stores created refunds by id
	Refunds map[string]*RemoteRefund

	// PaymentMode is returned from Mode. Default: test
	PaymentMode domain.PaymentMode

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Remote:      make(map[string]*RemoteSubscription),
		Refunds:     make(map[string]*RemoteRefund),
		PaymentMode: domain.ModeTest,
		CallLog:     []string{},
	}
}

// Calls returns how many times a method was called.
func (m *MockGateway) Calls(prefix string) int {
	n := 0
	for _, c := range m.CallLog {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *MockGateway) remote(id string) (*RemoteSubscription, error) {
	r, ok := m.Remote[id]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: "mock", Message: "no such object: " + id, Code: "resource_missing"}
	}
	return r, nil
}

// Put registers a remote object and returns it.
func (m *MockGateway) Put(id, status string) *RemoteSubscription {
	r := &RemoteSubscription{ID: id, Kind: domain.RemoteKindFromID(id), Status: status}
	m.Remote[id] = r
	return r
}

// CancelSubscription cancels a mock subscription.
func (m *MockGateway) CancelSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSubscription(%s)", id))

	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, id)
	}

	r, err := m.remote(id)
	if err != nil {
		return nil, err
	}
	r.Status = "canceled"
	return r, nil
}

// CancelSubscriptionAtPeriodEnd schedules a mock subscription to cancel.
func (m *MockGateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, id string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSubscriptionAtPeriodEnd(%s)", id))

	if m.CancelAtPeriodEndFunc != nil {
		return m.CancelAtPeriodEndFunc(ctx, id)
	}

	r, err := m.remote(id)
	if err != nil {
		return nil, err
	}
	r.CancelAtPeriodEnd = true
	return r, nil
}

// CancelSchedule cancels a mock schedule.
func (m *MockGateway) CancelSchedule(ctx context.Context, id string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSchedule(%s)", id))

	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, id)
	}

	r, err := m.remote(id)
	if err != nil {
		return nil, err
	}
	r.Status = "canceled"
	return r, nil
}

// CancelScheduleAtPeriodEnd sets a mock schedule's end behavior to cancel.
func (m *MockGateway) CancelScheduleAtPeriodEnd(ctx context.Context, id string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelScheduleAtPeriodEnd(%s)", id))

	if m.CancelAtPeriodEndFunc != nil {
		return m.CancelAtPeriodEndFunc(ctx, id)
	}

	r, err := m.remote(id)
	if err != nil {
		return nil, err
	}
	r.EndBehavior = "cancel"
	return r, nil
}

// PauseSubscription pauses a mock subscription.
func (m *MockGateway) PauseSubscription(ctx context.Context, params PauseSubscriptionParams) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("PauseSubscription(%s)", params.SubscriptionID))

	r, err := m.remote(params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	r.Paused = true
	r.ResumesAt = params.ResumesAt
	return r, nil
}

// ResumeSubscription resumes a mock subscription.
func (m *MockGateway) ResumeSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ResumeSubscription(%s)", id))

	r, err := m.remote(id)
	if err != nil {
		return nil, err
	}
	r.Paused = false
	r.ResumesAt = nil
	return r, nil
}

// UpdatePaymentMethod records a payment method change.
func (m *MockGateway) UpdatePaymentMethod(ctx context.Context, id, paymentMethodID string) (*RemoteSubscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("UpdatePaymentMethod(%s, %s)", id, paymentMethodID))
	return m.remote(id)
}

// GetUpcomingInvoice returns a mock invoice preview.
func (m *MockGateway) GetUpcomingInvoice(ctx context.Context, id string) (*UpcomingInvoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetUpcomingInvoice(%s)", id))

	if m.GetUpcomingInvoiceFunc != nil {
		return m.GetUpcomingInvoiceFunc(ctx, id)
	}
	if _, err := m.remote(id); err != nil {
		return nil, err
	}
	return &UpcomingInvoice{SubscriptionID: id}, nil
}

// CreateRefund creates a mock refund.
func (m *MockGateway) CreateRefund(ctx context.Context, params CreateRefundParams) (*RemoteRefund, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateRefund(%s, %s)", params.ChargeID, params.Amount))

	if m.CreateRefundFunc != nil {
		return m.CreateRefundFunc(ctx, params)
	}
	if params.ChargeID == "" {
		return nil, ErrMissingCharge
	}

	// Default mock behavior: refund succeeds immediately
	r := &RemoteRefund{
		ID:       "re_" + uuid.New().String()[:12],
		ChargeID: params.ChargeID,
		Amount:   params.Amount,
		Currency: params.Currency,
		Status:   "succeeded",
	}
	m.Refunds[r.ID] = r
	return r, nil
}

// VerifyWebhookSignature verifies a mock webhook signature.
func (m *MockGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}

	// Default mock behavior: always verify successfully
	return nil
}

// Mode returns the configured payment mode.
func (m *MockGateway) Mode() domain.PaymentMode {
	return m.PaymentMode
}

var _ Gateway = (*MockGateway)(nil)
