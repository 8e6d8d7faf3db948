package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type txCmd struct {
	account    string
	instrument string
	head       int
	tail       int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions of an account" }
func (*txCmd) Usage() string {
	return `pcs tx [-a <account>] [-s <instrument>] [-head <n>] [-tail <n>]

  Lists transactions by instrument, in recording order. The index column is the
  index to use with 'pcs rm'.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.account, "a", "", "Account, optional when the ledger has a single account")
	f.StringVar(&p.instrument, "s", "", "Only list this instrument")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	account, err := s.account(p.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	instruments := []string{costbasis.NormalizeInstrument(p.instrument)}
	if p.instrument == "" {
		if instruments, err = s.Instruments(account); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	log := &renderer.Transactions{Account: account}
	for _, i := range instruments {
		txs, err := s.List(account, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		log.Add(txs)
	}

	if p.head > 0 && p.head < len(log.Rows) {
		log.Rows = log.Rows[:p.head]
	}
	if p.tail > 0 && p.tail < len(log.Rows) {
		log.Rows = log.Rows[len(log.Rows)-p.tail:]
	}

	printMarkdown(renderer.RenderTransactions(log))
	return subcommands.ExitSuccess
}
