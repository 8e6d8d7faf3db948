package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/notify"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

type notifyCmd struct {
	account  string
	prices   string
	schedule string
	dry      bool
}

func (*notifyCmd) Name() string     { return "notify" }
func (*notifyCmd) Synopsis() string { return "post an account report to a chat webhook" }
func (*notifyCmd) Usage() string {
	return `pcs notify [-a <account>] [-prices <file>] [-schedule <cron>] [-dry]

  Posts a short report of the account holdings to the webhook configured with
  $PCS_WEBHOOK (or $DISCORD_WEBHOOK).

  With -schedule, pcs keeps running and posts on every tick of the cron
  expression (e.g. "0 18 * * 1-5" or "@daily") until interrupted.
`
}

func (c *notifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account, optional when the ledger has a single account")
	f.StringVar(&c.prices, "prices", "", "YAML file of last prices, overrides the configured price source")
	f.StringVar(&c.schedule, "schedule", "", "Cron expression, defaults to the configured schedule")
	f.BoolVar(&c.dry, "dry", false, "Print the report instead of posting it")
}

func (c *notifyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	account, err := s.account(c.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	provider, err := s.priceProvider(c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
		return subcommands.ExitFailure
	}
	hook := &notify.Webhook{URL: s.cfg.Notify.Webhook}
	if !c.dry && hook.URL == "" {
		fmt.Fprintf(os.Stderr, "Error: no webhook configured, set $%s\n", config.EnvWebhook)
		return subcommands.ExitUsageError
	}

	n := &notifier{session: s, account: account, provider: provider, hook: hook, dry: c.dry}

	schedule := c.schedule
	if schedule == "" {
		schedule = s.cfg.Notify.Schedule
	}
	if schedule == "" {
		if err := n.run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := cr.AddFunc(schedule, func() {
		if err := n.run(ctx); err != nil {
			s.log.Error().Err(err).Str("account", account).Msg("notification failed")
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing schedule %q: %v\n", schedule, err)
		return subcommands.ExitUsageError
	}
	s.log.Info().Str("account", account).Str("schedule", schedule).Msg("waiting for the next notification")
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return subcommands.ExitSuccess
}

// notifier posts account reports. Successive runs share a position cache so
// that only new transactions are replayed.
type notifier struct {
	session  *session
	account  string
	provider costbasis.PriceProvider
	hook     *notify.Webhook
	dry      bool

	cache *costbasis.PositionCache
}

func (n *notifier) run(ctx context.Context) error {
	// a JSONL ledger may have been edited by another pcs command.
	if n.session.file != "" {
		if err := n.session.Reload(); err != nil {
			return err
		}
		n.cache = nil
	}
	if n.cache == nil {
		n.cache = costbasis.NewPositionCache(n.session.Store)
	}

	positions, err := n.cache.Positions(n.account)
	report, err := summarize(ctx, n.provider, n.account, positions, err)
	if err != nil {
		return err
	}
	content := renderer.RenderReport(report)
	if n.dry {
		fmt.Fprint(stdout, content)
		return nil
	}
	if err := n.hook.Send(ctx, content); err != nil {
		return err
	}
	n.session.log.Info().Str("account", n.account).Int("holdings", len(report.Holdings)).Msg("report posted")
	return nil
}
