package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/middleware"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "subscriptions"

// Subjects, relative to the configured prefix.
const (
	SubjectStatusChanged          = "status_changed"
	SubjectScheduleCreated        = "schedule_created"
	SubjectCancellationScheduling = "cancellation_scheduling"
	SubjectCancellationScheduled  = "cancellation_scheduled"
	SubjectOrderNote              = "order_note"
)

// Publisher publishes a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect opens a NATS connection named after the service.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// Message is the JSON body published for every notification.
type Message struct {
	Kind           string     `json:"kind"`
	SubscriptionID int64      `json:"subscription_id,omitempty"`
	OrderID        int64      `json:"order_id,omitempty"`
	CustomerID     int64      `json:"customer_id,omitempty"`
	TransactionID  string     `json:"transaction_id,omitempty"`
	Mode           string     `json:"mode,omitempty"`
	From           string     `json:"from,omitempty"`
	To             string     `json:"to,omitempty"`
	CausedBy       string     `json:"caused_by,omitempty"`
	Note           string     `json:"note,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RequestID      string     `json:"request_id,omitempty"`
	At             time.Time  `json:"at"`
}

// NATSNotifier publishes notifications as JSON messages.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var _ Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier creates a NATSNotifier publishing under prefix.
func NewNATSNotifier(pub Publisher, prefix string, logger *slog.Logger) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{pub: pub, prefix: prefix, logger: logger, now: time.Now}
}

func (n *NATSNotifier) StatusChanged(ctx context.Context, c StatusChange) {
	at := c.At
	if at.IsZero() {
		at = n.now()
	}
	msg := subscriptionMessage(SubjectStatusChanged, c.Subscription)
	msg.From = string(c.From)
	msg.To = string(c.To)
	msg.CausedBy = string(c.CausedBy)
	msg.At = at.UTC()
	n.publish(ctx, SubjectStatusChanged, msg)
}

func (n *NATSNotifier) ScheduleCreated(ctx context.Context, sub *domain.Subscription) {
	msg := subscriptionMessage(SubjectScheduleCreated, sub)
	msg.At = n.now().UTC()
	n.publish(ctx, SubjectScheduleCreated, msg)
}

func (n *NATSNotifier) CancellationScheduling(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	msg := subscriptionMessage(SubjectCancellationScheduling, sub)
	msg.CausedBy = string(causedBy)
	msg.At = n.now().UTC()
	n.publish(ctx, SubjectCancellationScheduling, msg)
}

func (n *NATSNotifier) CancellationScheduled(ctx context.Context, sub *domain.Subscription, causedBy domain.Actor) {
	msg := subscriptionMessage(SubjectCancellationScheduled, sub)
	msg.CausedBy = string(causedBy)
	msg.ExpiresAt = sub.ExpiresAt
	msg.At = n.now().UTC()
	n.publish(ctx, SubjectCancellationScheduled, msg)
}

func (n *NATSNotifier) OrderNote(ctx context.Context, note domain.OrderNote) {
	at := note.CreatedAt
	if at.IsZero() {
		at = n.now()
	}
	n.publish(ctx, SubjectOrderNote, Message{
		Kind:     SubjectOrderNote,
		OrderID:  note.OrderID,
		Note:     note.Note,
		CausedBy: string(note.CausedBy),
		At:       at.UTC(),
	})
}

// Subject returns the full subject for a notification kind.
func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

func (n *NATSNotifier) publish(ctx context.Context, kind string, msg Message) {
	msg.RequestID = domain.RequestIDFromContext(ctx)
	logger := middleware.GetLogger(ctx, n.logger)

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("failed to encode notification", "kind", kind, "error", err)
		return
	}
	if err := n.pub.Publish(n.Subject(kind), data); err != nil {
		logger.Error("failed to publish notification",
			"subject", n.Subject(kind),
			"subscription_id", msg.SubscriptionID,
			"error", err,
		)
	}
}

func subscriptionMessage(kind string, sub *domain.Subscription) Message {
	return Message{
		Kind:           kind,
		SubscriptionID: sub.ID,
		OrderID:        sub.FirstOrderID,
		CustomerID:     sub.CustomerID,
		TransactionID:  sub.TransactionID,
		Mode:           string(sub.Mode),
	}
}
