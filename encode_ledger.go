package costbasis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// CommandType identifies the kind of a ledger file line.
type CommandType string

const (
	CmdInit CommandType = "init" // sets the ledger currency
	CmdOpen CommandType = "open" // creates an account
	CmdBuy  CommandType = "buy"
	CmdSell CommandType = "sell"
)

// DecodeLedger reads a JSONL ledger file into a new Ledger configured with
// opts. An "init" line overrides the currency option.
//
// Transactions are appended in file order without the strict sell check: the
// file is a record of what was accepted, including sells that a later removal
// left uncovered. Replay reports those.
func DecodeLedger(r io.Reader, opts ...Option) (*Ledger, error) {
	type line struct {
		account string
		tx      *Transaction
	}
	var lines []line
	var currencyOpts []Option

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var header struct {
			Command  CommandType `json:"command"`
			Account  string      `json:"account"`
			Currency string      `json:"currency"`
		}
		if err := json.Unmarshal(lineBytes, &header); err != nil {
			return nil, fmt.Errorf("line %d: could not identify command in %q: %w", n, string(lineBytes), err)
		}

		switch header.Command {
		case CmdInit:
			currencyOpts = append(currencyOpts, WithCurrency(header.Currency))
		case CmdOpen:
			lines = append(lines, line{account: header.Account})
		case CmdBuy, CmdSell:
			var tx Transaction
			if err := json.Unmarshal(lineBytes, &tx); err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			lines = append(lines, line{account: header.Account, tx: &tx})
		default:
			return nil, fmt.Errorf("line %d: unknown ledger command: %q", n, header.Command)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	ledger, err := NewLedger(append(opts, currencyOpts...)...)
	if err != nil {
		return nil, err
	}
	strict := ledger.strict
	ledger.strict = false
	defer func() { ledger.strict = strict }()

	for _, l := range lines {
		if l.tx == nil {
			if err := ledger.CreateAccount(l.account); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := ledger.Append(l.account, *l.tx); err != nil {
			return nil, fmt.Errorf("account %q: %w", l.account, err)
		}
	}
	return ledger, nil
}

// EncodeTransaction writes one transaction line for account.
func EncodeTransaction(w io.Writer, account string, tx Transaction) error {
	var line jsonObjectWriter
	line.EmbedFrom(tx)
	line.Append("account", account)
	data, err := line.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeLedger writes the whole content of s in JSONL: the currency, then for
// each account its "open" line followed by its transactions grouped by
// instrument in ledger order.
func EncodeLedger(w io.Writer, s Store) error {
	writeLine := func(build func(*jsonObjectWriter)) error {
		var line jsonObjectWriter
		build(&line)
		data, err := line.MarshalJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}

	err := writeLine(func(l *jsonObjectWriter) {
		l.Append("command", CmdInit)
		l.Append("currency", s.Currency())
	})
	if err != nil {
		return err
	}

	accounts, err := s.Accounts()
	if err != nil {
		return err
	}
	for _, account := range accounts {
		err := writeLine(func(l *jsonObjectWriter) {
			l.Append("command", CmdOpen)
			l.Append("account", account)
		})
		if err != nil {
			return err
		}
		instruments, err := s.Instruments(account)
		if err != nil {
			return err
		}
		for _, instrument := range instruments {
			txs, err := s.List(account, instrument)
			if err != nil {
				return err
			}
			for _, tx := range txs {
				if err := EncodeTransaction(w, account, tx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
