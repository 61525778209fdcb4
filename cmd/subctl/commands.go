package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/schedule"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
)

type actorCommand func(s subscriptionCommands, ctx context.Context, id int64, causedBy domain.Actor) (*domain.Subscription, error)

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <subscription-id>",
		Short: "Print a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := a.subs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.printSubscription(stdout(cmd), sub)
		},
	}
}

func (c *cli) cancelCmd() *cobra.Command {
	var force, localOnly bool
	cmd := &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], func(ctx context.Context, a *app, id int64, actor domain.Actor) (*domain.Subscription, error) {
				return a.subs.Cancel(ctx, id, service.CancelParams{Force: force, LocalOnly: localOnly, CausedBy: actor})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the status check")
	cmd.Flags().BoolVar(&localOnly, "local-only", false, "do not cancel on the gateway")
	return cmd
}

func (c *cli) cancelAtPeriodEndCmd() *cobra.Command {
	return c.simpleCmd("cancel-at-period-end", "Cancel a subscription when its current period ends", subscriptionCommands.CancelAtPeriodEnd)
}

func (c *cli) pauseCmd() *cobra.Command {
	var effectiveAt, resumesAt string
	cmd := &cobra.Command{
		Use:   "pause <subscription-id>",
		Short: "Pause billing on an open-ended subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			effective, err := parseOptionalTime(effectiveAt)
			if err != nil {
				return fmt.Errorf("--effective-at: %w", err)
			}
			resumes, err := parseOptionalTime(resumesAt)
			if err != nil {
				return fmt.Errorf("--resumes-at: %w", err)
			}
			return c.run(cmd, args[0], func(ctx context.Context, a *app, id int64, actor domain.Actor) (*domain.Subscription, error) {
				return a.subs.Pause(ctx, id, service.PauseParams{EffectiveAt: effective, ResumesAt: resumes, CausedBy: actor})
			})
		},
	}
	cmd.Flags().StringVar(&effectiveAt, "effective-at", "", "pause later instead of now (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&resumesAt, "resumes-at", "", "resume automatically on this date (YYYY-MM-DD or RFC 3339)")
	return cmd
}

func (c *cli) simpleCmd(use, short string, fn actorCommand) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <subscription-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], func(ctx context.Context, a *app, id int64, actor domain.Actor) (*domain.Subscription, error) {
				return fn(a.subs, ctx, id, actor)
			})
		},
	}
}

func (c *cli) updatePaymentMethodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-payment-method <subscription-id> <payment-method-id>",
		Short: "Change the payment method future renewals are charged to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], func(ctx context.Context, a *app, id int64, actor domain.Actor) (*domain.Subscription, error) {
				return a.subs.UpdatePaymentMethod(ctx, id, args[1], actor)
			})
		},
	}
}

func (c *cli) prorationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "proration <subscription-id>",
		Short: "Print the unused part of the current period's charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := a.subs.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			amount, err := a.subs.ProrationFor(cmd.Context(), sub)
			if err != nil {
				return err
			}
			if c.v.GetBool("json") {
				return writeJSON(stdout(cmd), map[string]string{
					"subscription_id": strconv.FormatInt(sub.ID, 10),
					"amount":          amount.StringFixed(2),
					"currency":        sub.CurrencyCode,
				})
			}
			_, _ = fmt.Fprintf(stdout(cmd), "%s %s\n", amount.StringFixed(2), sub.CurrencyCode)
			return nil
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var (
		p                          service.CreateFromOrderParams
		period, initial, recurring string
		billingTotal               int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the subscription for a paid order line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Period, err = schedule.ParsePeriod(period); err != nil {
				return fmt.Errorf("--period: %w", err)
			}
			if p.InitialAmount, err = decimal.NewFromString(initial); err != nil {
				return fmt.Errorf("--initial: %w", err)
			}
			if p.RecurringAmount, err = decimal.NewFromString(recurring); err != nil {
				return fmt.Errorf("--recurring: %w", err)
			}
			if billingTotal > 0 {
				p.BillingTotal = &billingTotal
			}
			if p.CausedBy, err = c.actor(); err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			sub, err := a.subs.CreateFromOrder(cmd.Context(), p)
			if err != nil {
				return err
			}
			return c.printSubscription(stdout(cmd), sub)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&p.OrderID, "order", 0, "order id")
	f.Int64Var(&p.OrderItemID, "item", 0, "order line id")
	f.StringVar(&period, "period", "month", "billing period: day, week, month or year")
	f.IntVar(&p.Frequency, "frequency", 1, "periods between charges")
	f.IntVar(&billingTotal, "installments", 0, "total number of charges; 0 bills until canceled")
	f.StringVar(&initial, "initial", "0", "first charge amount")
	f.StringVar(&recurring, "recurring", "0", "renewal amount")
	f.StringVar(&p.TransactionID, "transaction-id", "", "gateway subscription or schedule id")
	f.StringVar(&p.PaymentMethodID, "payment-method", "", "gateway payment method id")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func (c *cli) refundCmd() *cobra.Command {
	var amount, reason string
	cmd := &cobra.Command{
		Use:   "refund <order-id>",
		Short: "Refund part or all of an order's charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			amt := decimal.Zero
			if amount != "" {
				if amt, err = decimal.NewFromString(amount); err != nil {
					return fmt.Errorf("--amount: %w", err)
				}
			}
			actor, err := c.actor()
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			refund, err := a.refunds.Refund(cmd.Context(), service.RefundParams{
				OrderID:  orderID,
				Amount:   amt,
				Reason:   reason,
				CausedBy: actor,
			})
			if err != nil {
				return err
			}
			if c.v.GetBool("json") {
				return writeJSON(stdout(cmd), refund)
			}
			_, _ = fmt.Fprintf(stdout(cmd), "refund %s\t%s %s\t%s\n",
				refund.RemoteRefundID, refund.Amount.StringFixed(2), refund.Currency, refund.Type)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount to refund; empty refunds the remaining balance")
	cmd.Flags().StringVar(&reason, "reason", "", "refund reason recorded with the gateway")
	return cmd
}

// run resolves the id and actor, opens the app and prints the resulting
// subscription.
func (c *cli) run(cmd *cobra.Command, rawID string, fn func(ctx context.Context, a *app, id int64, actor domain.Actor) (*domain.Subscription, error)) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	actor, err := c.actor()
	if err != nil {
		return err
	}
	a, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	sub, err := fn(cmd.Context(), a, id, actor)
	if err != nil {
		return err
	}
	return c.printSubscription(stdout(cmd), sub)
}

func (c *cli) printSubscription(w io.Writer, sub *domain.Subscription) error {
	if c.v.GetBool("json") {
		return writeJSON(w, sub)
	}
	_, _ = fmt.Fprintf(w, "subscription %d\t%s\t%s\n", sub.ID, sub.Status, sub.Mode)
	_, _ = fmt.Fprintf(w, "  schedule\tevery %d %s, billed %d%s\n", sub.Frequency, sub.Period, sub.BilledCount,
		lo.Ternary(sub.BillingTotal != nil, fmt.Sprintf(" of %d", lo.FromPtr(sub.BillingTotal)), ""))
	_, _ = fmt.Fprintf(w, "  amount\t%s %s\n", sub.RecurringAmount.StringFixed(2), sub.CurrencyCode)
	if sub.TransactionID != "" {
		_, _ = fmt.Fprintf(w, "  remote\t%s\n", sub.TransactionID)
	}
	for _, d := range []struct {
		label string
		at    *time.Time
	}{
		{"next billing", sub.NextBillingAt},
		{"expires", sub.ExpiresAt},
		{"suspended", sub.SuspendedAt},
		{"resumes", sub.ResumedAt},
		{"ended", sub.EndedAt},
	} {
		if d.at != nil {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", d.label, d.at.Format(time.RFC3339))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseOptionalTime accepts a date or an RFC 3339 timestamp. Dates are
// midnight UTC.
func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a date", s)
}
