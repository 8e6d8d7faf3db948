package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	account string
	prices  string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display the positions of an account with their valuation" }
func (*holdingCmd) Usage() string {
	return `pcs holding [-a <account>] [-prices <file>]

  Displays every position of an account: quantity, average cost, market value
  and profit and loss. Instruments without a quote are valued at their average
  cost and marked with a star.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account, optional when the ledger has a single account")
	f.StringVar(&c.prices, "prices", "", "YAML file of last prices, overrides the configured price source")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	positions, err := costbasis.Positions(s, account)
	report, err := summarize(ctx, provider, account, positions, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating holding report: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, w := range report.Warnings {
		s.log.Warn().Str("account", account).Msg(w)
	}

	printMarkdown(renderer.RenderSummary(report))
	return subcommands.ExitSuccess
}

// summarize values positions and builds the account report. replayErr is the
// error returned with positions: replay errors become report warnings, any
// other error is returned.
func summarize(ctx context.Context, provider costbasis.PriceProvider, account string, positions []costbasis.Position, replayErr error) (*renderer.Summary, error) {
	if replayErr != nil && positions == nil {
		return nil, replayErr
	}
	summary, fallbacks, err := costbasis.Summarize(ctx, provider, positions)
	if err != nil {
		return nil, err
	}
	report := renderer.NewSummary(account, positions, summary, fallbacks)
	report.Warnings = append(report.Warnings, replayWarnings(replayErr)...)
	return report, nil
}

// replayWarnings flattens joined replay errors into one line per instrument.
func replayWarnings(err error) []string {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var warnings []string
	for _, e := range errs {
		warnings = append(warnings, strings.ReplaceAll(e.Error(), "\n", "; "))
	}
	return warnings
}
