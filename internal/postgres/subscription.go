package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
)

const subscriptionColumns = `id, customer_id, first_order_id, first_order_item_id,
	period, frequency, billing_total, billed_count,
	initial_amount, recurring_amount, currency_code,
	transaction_id, remote_kind, payment_method_id,
	status, mode, source,
	created_at, updated_at, started_at, ended_at, trial_started_at, trial_ended_at,
	next_billing_at, expired_at, canceled_at, suspended_at, resumed_at, expires_at`

const defaultListLimit = 100

// SubscriptionRepo persists subscriptions.
type SubscriptionRepo struct {
	db     DBTX
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.SubscriptionRepository = (*SubscriptionRepo)(nil)

// NewSubscriptionRepo creates a SubscriptionRepo. loc is the zone the
// *_local columns are rendered in; nil means UTC.
func NewSubscriptionRepo(db DBTX, loc *time.Location, logger *slog.Logger) *SubscriptionRepo {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRepo{db: db, loc: loc, logger: logger, now: time.Now}
}

// Get returns the subscription with the given id.
func (r *SubscriptionRepo) Get(ctx context.Context, id int64) (*domain.Subscription, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, notFound(err, domain.ErrSubscriptionNotFound, "subscription.get")
	}
	return sub, nil
}

// FindByTransactionID returns the subscription linked to a gateway
// subscription or schedule id.
func (r *SubscriptionRepo) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Subscription, error) {
	if transactionID == "" {
		return nil, domain.ErrSubscriptionNotFound.WithOp("subscription.find_by_transaction")
	}
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE transaction_id = $1
		 ORDER BY id DESC
		 LIMIT 1`, transactionID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, notFound(err, domain.ErrSubscriptionNotFound, "subscription.find_by_transaction")
	}
	return sub, nil
}

// ListByOrder returns the subscriptions created from an order.
func (r *SubscriptionRepo) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Subscription, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE first_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, domain.Internal(err, "subscription.list_by_order", "database query failed")
	}
	return collectSubscriptions(rows, "subscription.list_by_order")
}

// List returns subscriptions matching filter, oldest first.
func (r *SubscriptionRepo) List(ctx context.Context, filter domain.SubscriptionFilter) ([]*domain.Subscription, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		args = append(args, lo.Map(filter.Statuses, func(s domain.SubscriptionStatus, _ int) string {
			return string(s)
		}))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Mode != "" {
		args = append(args, string(filter.Mode))
		where = append(where, fmt.Sprintf("mode = $%d", len(args)))
	}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + subscriptionColumns + ` FROM subscriptions`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := conn(ctx, r.db).Query(ctx, b.String(), args...)
	if err != nil {
		return nil, domain.Internal(err, "subscription.list", "database query failed")
	}
	return collectSubscriptions(rows, "subscription.list")
}

// Create inserts sub and sets its ID and timestamps.
func (r *SubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	now := r.now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	cols, args := r.columnValues(sub)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO subscriptions (%s) VALUES (%s) RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&sub.ID); err != nil {
		return domain.Internal(err, "subscription.create", "failed to create subscription")
	}

	r.logger.Debug("subscription created",
		"subscription_id", sub.ID,
		"first_order_id", sub.FirstOrderID,
		"status", sub.Status,
	)
	return nil
}

// Update writes every mutable column of sub.
func (r *SubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	sub.UpdatedAt = r.now().UTC()

	cols, args := r.columnValues(sub)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	args = append(args, sub.ID)

	query := fmt.Sprintf(`UPDATE subscriptions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return domain.Internal(err, "subscription.update", "failed to update subscription")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound.WithOp("subscription.update")
	}
	return nil
}

// columnValues returns the writable columns of sub and their values.
// Every timestamp is written twice: UTC and local wall time.
func (r *SubscriptionRepo) columnValues(s *domain.Subscription) ([]string, []any) {
	cols := []string{
		"customer_id", "first_order_id", "first_order_item_id",
		"period", "frequency", "billing_total", "billed_count",
		"initial_amount", "recurring_amount", "currency_code",
		"transaction_id", "remote_kind", "payment_method_id",
		"status", "mode", "source",
		"created_at", "created_at_local", "updated_at", "updated_at_local",
	}
	args := []any{
		s.CustomerID, s.FirstOrderID, s.FirstOrderItemID,
		string(s.Period), s.Frequency, s.BillingTotal, s.BilledCount,
		s.InitialAmount, s.RecurringAmount, s.CurrencyCode,
		s.TransactionID, string(s.RemoteKind), s.PaymentMethodID,
		string(s.Status), string(s.Mode), string(lo.Ternary(s.Source == "", domain.SourceStripe, s.Source)),
		s.CreatedAt.UTC(), localWall(s.CreatedAt, r.loc), s.UpdatedAt.UTC(), localWall(s.UpdatedAt, r.loc),
	}

	nullable := []struct {
		name string
		at   *time.Time
	}{
		{"started_at", s.StartedAt},
		{"ended_at", s.EndedAt},
		{"trial_started_at", s.TrialStartedAt},
		{"trial_ended_at", s.TrialEndedAt},
		{"next_billing_at", s.NextBillingAt},
		{"expired_at", s.ExpiredAt},
		{"canceled_at", s.CanceledAt},
		{"suspended_at", s.SuspendedAt},
		{"resumed_at", s.ResumedAt},
		{"expires_at", s.ExpiresAt},
	}
	for _, n := range nullable {
		cols = append(cols, n.name, n.name+"_local")
		args = append(args, utcPtr(n.at), localWallPtr(n.at, r.loc))
	}
	return cols, args
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		s                                  domain.Subscription
		period, kind, status, mode, source string
	)
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.FirstOrderID, &s.FirstOrderItemID,
		&period, &s.Frequency, &s.BillingTotal, &s.BilledCount,
		&s.InitialAmount, &s.RecurringAmount, &s.CurrencyCode,
		&s.TransactionID, &kind, &s.PaymentMethodID,
		&status, &mode, &source,
		&s.CreatedAt, &s.UpdatedAt, &s.StartedAt, &s.EndedAt, &s.TrialStartedAt, &s.TrialEndedAt,
		&s.NextBillingAt, &s.ExpiredAt, &s.CanceledAt, &s.SuspendedAt, &s.ResumedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if s.Period, err = schedule.ParsePeriod(period); err != nil {
		return nil, err
	}
	if s.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	if s.Mode, err = domain.ParsePaymentMode(mode); err != nil {
		return nil, err
	}
	s.RemoteKind = domain.RemoteKind(kind)
	s.Source = domain.Source(source)
	return &s, nil
}

func collectSubscriptions(rows pgx.Rows, op string) ([]*domain.Subscription, error) {
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan subscription")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to iterate subscriptions")
	}
	return subs, nil
}
