package cmd

import (
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&openCmd{}, "ledger")
	c.Register(&accountsCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&removeCmd{}, "transactions")
	c.Register(&txCmd{}, "transactions")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&notifyCmd{}, "reports")

	c.Register(&topicCmd{}, "help")
}

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	account := predict.Something
	instrument := predict.Something
	trade := &complete.Command{
		Flags: map[string]complete.Predictor{
			"a": account,
			"s": instrument,
			"q": predict.Something,
			"p": predict.Something,
			"d": predict.Something,
			"m": predict.Something,
		},
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"open":     {},
			"accounts": {},
			"fmt":      {Flags: map[string]complete.Predictor{"o": predict.Files("*.jsonl")}},
			"buy":      trade,
			"sell":     trade,
			"rm": {Flags: map[string]complete.Predictor{
				"a": account,
				"s": instrument,
				"i": predict.Something,
			}},
			"tx": {Flags: map[string]complete.Predictor{
				"a":    account,
				"s":    instrument,
				"head": predict.Something,
				"tail": predict.Something,
			}},
			"holding": {Flags: map[string]complete.Predictor{
				"a":      account,
				"prices": predict.Files("*.yaml"),
			}},
			"notify": {Flags: map[string]complete.Predictor{
				"a":        account,
				"prices":   predict.Files("*.yaml"),
				"schedule": predict.Set{"@daily", "@hourly", "0 18 * * 1-5"},
				"dry":      predict.Nothing,
			}},
			"topic": {Args: predict.Set{"*", "average-cost", "ledger-file", "prices", "configuration", "notifications"}},
			"help":  {},
		},
		Flags: map[string]complete.Predictor{
			"config":      predict.Files("*.yaml"),
			"ledger-file": predict.Files("*.jsonl"),
			"db":          predict.Files("*.db"),
			"currency":    predict.Set{"EUR", "USD", "TWD", "GBP", "CHF", "JPY"},
			"v":           predict.Nothing,
			"raw":         predict.Nothing,
		},
	}
}
