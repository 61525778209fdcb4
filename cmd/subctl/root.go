package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chicsouqsa-collab/Spay-sub001/internal"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/bootstrap"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
	"github.com/chicsouqsa-collab/Spay-sub001/internal/service"
)

// subscriptionCommands is the command surface of *service.SubscriptionService
// used by the CLI.
type subscriptionCommands interface {
	Get(ctx context.Context, id int64) (*domain.Subscription, error)
	Cancel(ctx context.Context, id int64, params service.CancelParams) (*domain.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, id int64, causedBy domain.Actor) (*domain.Subscription, error)
	Pause(ctx context.Context, id int64, params service.PauseParams) (*domain.Subscription, error)
	Resume(ctx context.Context, id int64, causedBy domain.Actor) (*domain.Subscription, error)
	Suspend(ctx context.Context, id int64, causedBy domain.Actor) (*domain.Subscription, error)
	Reactivate(ctx context.Context, id int64, causedBy domain.Actor) (*domain.Subscription, error)
	UpdatePaymentMethod(ctx context.Context, id int64, paymentMethodID string, causedBy domain.Actor) (*domain.Subscription, error)
	CreateFromOrder(ctx context.Context, params service.CreateFromOrderParams) (*domain.Subscription, error)
	ProrationFor(ctx context.Context, sub *domain.Subscription) (decimal.Decimal, error)
}

type refundCommands interface {
	Refund(ctx context.Context, params service.RefundParams) (*domain.Refund, error)
}

var (
	_ subscriptionCommands = (*service.SubscriptionService)(nil)
	_ refundCommands       = (*service.RefundService)(nil)
)

// app is what the commands run against. Opened lazily so help and flag
// errors never touch the database.
type app struct {
	subs    subscriptionCommands
	refunds refundCommands
	close   func()
}

// connector opens an app from the resolved flags and environment.
type connector func(ctx context.Context, v *viper.Viper) (*app, error)

// cli carries state shared by every command.
type cli struct {
	v       *viper.Viper
	connect connector
	app     *app
}

func newRootCmd(connect connector) *cobra.Command {
	c := &cli{v: viper.New(), connect: connect}

	rootCmd := &cobra.Command{
		Use:           "subctl",
		Short:         "Administer subscriptions",
		Long:          "subctl runs the administrative subscription commands (cancel, pause, refund, ...) against the engine's database and payment gateway.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil && c.app.close != nil {
				c.app.close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	flags.String("actor", string(domain.ActorAdmin), "who the change is attributed to: admin, customer or system")
	flags.Bool("json", false, "print results as JSON")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")

	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlags(flags)
	_ = c.v.BindEnv("database-url", "DATABASE_URL")
	_ = c.v.BindEnv("actor", "SUBCTL_ACTOR")

	rootCmd.AddCommand(
		c.showCmd(),
		c.cancelCmd(),
		c.cancelAtPeriodEndCmd(),
		c.pauseCmd(),
		c.simpleCmd("resume", "Resume a paused subscription", subscriptionCommands.Resume),
		c.simpleCmd("suspend", "Place an administrative hold on a subscription", subscriptionCommands.Suspend),
		c.simpleCmd("reactivate", "Lift an administrative hold", subscriptionCommands.Reactivate),
		c.updatePaymentMethodCmd(),
		c.prorationCmd(),
		c.createCmd(),
		c.refundCmd(),
	)

	return rootCmd
}

// open connects on first use.
func (c *cli) open(ctx context.Context) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.connect(ctx, c.v)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) actor() (domain.Actor, error) {
	a := domain.Actor(c.v.GetString("actor"))
	if !lo.Contains([]domain.Actor{domain.ActorAdmin, domain.ActorCustomer, domain.ActorSystem}, a) {
		return "", fmt.Errorf("invalid actor %q", a)
	}
	return a, nil
}

// connectApp opens the real engine from the environment, with flags taking
// precedence.
func connectApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}
	if url := v.GetString("database-url"); url != "" {
		cfg.DatabaseUrl = url
	}

	logger := internal.NewLogger(os.Stderr, cfg.Env, v.GetString("log-level"))
	a, err := bootstrap.Open(ctx, cfg, logger, bootstrap.Options{
		Registerer: prometheus.NewRegistry(),
		ClientName: "subctl",
	})
	if err != nil {
		return nil, err
	}
	return &app{subs: a.Subscriptions, refunds: a.Refunds, close: a.Close}, nil
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
