package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	outputFile string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `pcs fmt [-o <file>|-]

  Validates and formats the ledger. This command reads all transactions,
  validates them, applies available quick-fixes (normalized instruments, the
  ledger currency on prices) and writes them back in a canonical JSONL format,
  grouped by account and instrument.

  By default the JSONL ledger is formatted in place. With -o the ledger is
  written to another file, or to the standard output with "-". A SQLite ledger
  can only be exported with -o.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputFile, "o", "", "Output file, '-' for the standard output")
}

func (c *fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	switch c.outputFile {
	case "":
		if s.file == "" {
			fmt.Fprintln(os.Stderr, "Error: a SQLite ledger is exported with -o")
			return subcommands.ExitUsageError
		}
		if err := s.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Ledger file '%s' has been formatted.\n", s.file)
	case "-":
		if err := costbasis.EncodeLedger(stdout, s); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
			return subcommands.ExitFailure
		}
	default:
		out, err := os.Create(c.outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening output file %q: %v\n", c.outputFile, err)
			return subcommands.ExitFailure
		}
		if err := costbasis.EncodeLedger(out, s); err != nil {
			out.Close()
			fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := out.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file %q: %v\n", c.outputFile, err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
