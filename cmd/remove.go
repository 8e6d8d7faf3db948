package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
)

type removeCmd struct {
	account    string
	instrument string
	index      int
}

func (*removeCmd) Name() string     { return "rm" }
func (*removeCmd) Synopsis() string { return "remove a recorded transaction" }
func (*removeCmd) Usage() string {
	return `pcs rm [-a <account>] -s <instrument> -i <index>

  Removes a transaction, identified by its index in the instrument sequence as
  listed by 'pcs tx'. Later transactions shift down by one and the position is
  replayed without it.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account, optional when the ledger has a single account")
	f.StringVar(&c.instrument, "s", "", "Instrument symbol")
	f.IntVar(&c.index, "i", -1, "Index of the transaction to remove")
}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.instrument == "" || c.index < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

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
	tx, err := s.Remove(account, c.instrument, c.index)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing transaction: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := s.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	s.log.Info().Str("account", account).Str("instrument", tx.Instrument).Int("index", c.index).Msg("transaction removed")
	fmt.Fprintf(stdout, "removed %s %s %s @ %s of %s\n", tx.Side, tx.Quantity, tx.Instrument, tx.Price, tx.Timestamp.Format(time.DateOnly))
	return subcommands.ExitSuccess
}
