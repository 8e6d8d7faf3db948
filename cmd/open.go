package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// openCmd creates an account.
type openCmd struct{}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "open a new account" }
func (*openCmd) Usage() string {
	return `pcs open <account>...

  Creates empty accounts in the ledger. Account names are case sensitive and
  must be unique.
`
}

func (*openCmd) SetFlags(f *flag.FlagSet) {}

func (*openCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one account name is required")
		return subcommands.ExitUsageError
	}
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	for _, name := range f.Args() {
		if err := s.CreateAccount(name); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating account: %v\n", err)
			return subcommands.ExitFailure
		}
		s.log.Info().Str("account", name).Msg("account opened")
	}
	if err := s.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// accountsCmd lists accounts.
type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and their instruments" }
func (*accountsCmd) Usage() string {
	return `pcs accounts

  Lists the ledger accounts in name order, with the instruments traded in
  each of them.
`
}

func (*accountsCmd) SetFlags(f *flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	accounts, err := s.Accounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, a := range accounts {
		instruments, err := s.Instruments(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "%s\t%d instruments\n", a, len(instruments))
		for _, i := range instruments {
			fmt.Fprintf(stdout, "  %s\n", i)
		}
	}
	return subcommands.ExitSuccess
}
