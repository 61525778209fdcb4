package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/billing"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
)

const accountPageSize = 100

type accountProcessor struct {
	Deps
}

// NewAccountProcessor cancels every open subscription of a mode once the
// application loses access to the gateway account.
func NewAccountProcessor(deps Deps) Processor {
	p := &accountProcessor{Deps: deps.withDefaults()}
	return &Pipeline[AccountView, []*domain.Subscription]{
		SourceType: domain.SourceAccount,
		View:       (*Envelope).Application,
		Resolve:    p.resolve,
		Handle:     p.handle,
		Logger:     p.Logger,
	}
}

// resolve lists the non-terminal subscriptions of the event's mode.
func (p *accountProcessor) resolve(ctx context.Context, env *Envelope, _ AccountView) ([]*domain.Subscription, error) {
	open := lo.Reject(domain.AllStatuses, func(s domain.SubscriptionStatus, _ int) bool {
		return s.IsTerminal()
	})

	var subs []*domain.Subscription
	for offset := 0; ; offset += accountPageSize {
		page, err := p.Subscriptions.List(ctx, domain.SubscriptionFilter{
			Statuses: open,
			Mode:     env.Mode(),
			Limit:    accountPageSize,
			Offset:   offset,
		})
		if err != nil {
			return nil, err
		}
		subs = append(subs, page...)
		if len(page) < accountPageSize {
			return subs, nil
		}
	}
}

// handle cancels each subscription. The gateway usually refuses calls
// after deauthorization, so those subscriptions are canceled locally.
func (p *accountProcessor) handle(ctx context.Context, env *Envelope, v AccountView, subs []*domain.Subscription) (domain.RequestStatus, error) {
	logger := p.Logger.With("account", v.Account, "mode", env.Mode())

	var errs []error
	for _, sub := range subs {
		params := service.CancelParams{Force: true, CausedBy: domain.ActorWebhook}
		_, err := p.Lifecycle.Cancel(ctx, sub.ID, params)
		if billing.IsNotFound(err) || billing.IsCredentialsExpired(err) {
			params.LocalOnly = true
			_, err = p.Lifecycle.Cancel(ctx, sub.ID, params)
		}
		if err != nil {
			logger.Error("failed to cancel subscription after deauthorization", "subscription_id", sub.ID, "error", err)
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
		}
	}

	logger.Info("account deauthorized", "subscriptions", len(subs), "failed", len(errs))
	return "", errors.Join(errs...)
}
