package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

// parseDate reads a day (YYYY-MM-DD) or an RFC 3339 timestamp. An empty
// string is now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	account    string
	date       string
	instrument string
	quantity   string
	price      string
	memo       string
}

func (c *tradeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account, optional when the ledger has a single account")
	f.StringVar(&c.date, "d", "", "Transaction date (YYYY-MM-DD), today by default")
	f.StringVar(&c.instrument, "s", "", "Instrument symbol")
	f.StringVar(&c.quantity, "q", "", "Number of units")
	f.StringVar(&c.price, "p", "", "Price per unit, in the ledger currency")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

// appendTrade records a trade built from the flags. A sell without quantity
// sells the whole position.
func (c *tradeFlags) appendTrade(ctx context.Context, f *flag.FlagSet, side costbasis.Side) subcommands.ExitStatus {
	if c.instrument == "" || c.price == "" || (c.quantity == "" && side == costbasis.Buy) {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
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
	price, err := costbasis.ParseMoney(c.price, s.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price: %v\n", err)
		return subcommands.ExitUsageError
	}

	var quantity costbasis.Quantity
	if c.quantity == "" {
		// sell everything held.
		txs, err := s.List(account, costbasis.NormalizeInstrument(c.instrument))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		pos, _ := costbasis.ComputePosition(txs)
		quantity = pos.Quantity
	} else if quantity, err = costbasis.ParseQuantity(c.quantity); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}

	tx := costbasis.Transaction{
		Timestamp:  on,
		Instrument: c.instrument,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Memo:       c.memo,
	}
	id, err := s.Append(account, tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording %s: %v\n", side, err)
		return subcommands.ExitFailure
	}
	if err := s.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	s.log.Info().Stringer("id", id).Stringer("side", side).Stringer("quantity", quantity).Stringer("price", price).Msg("transaction recorded")
	fmt.Fprintf(stdout, "%s %s %s @ %s recorded as %s\n", side, quantity, tx.Instrument, price, id)
	return subcommands.ExitSuccess
}

type buyCmd struct{ tradeFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase units to open or add to a position" }
func (*buyCmd) Usage() string {
	return `pcs buy [-a <account>] -s <instrument> -q <quantity> -p <price> [-d <date>] [-m <memo>]

  Purchases units of an instrument. The cost raises the position cost basis.
`
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.appendTrade(ctx, f, costbasis.Buy)
}

type sellCmd struct{ tradeFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell units to trim or close a position" }
func (*sellCmd) Usage() string {
	return `pcs sell [-a <account>] -s <instrument> [-q <quantity>] -p <price> [-d <date>] [-m <memo>]

  Sells units of an instrument at their average cost, realizing a gain or a
  loss. Without -q the whole position is sold.
`
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.appendTrade(ctx, f, costbasis.Sell)
}
