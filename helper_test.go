package costbasis

import (
	"testing"
	"time"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// day returns midnight UTC of a 2025 day, enough to order test transactions.
func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func buy(q, p float64) Transaction  { return NewBuy(day(1, 1), "2330.TW", Q(q), EUR(p)) }
func sell(q, p float64) Transaction { return NewSell(day(1, 2), "2330.TW", Q(q), EUR(p)) }

// newTestLedger returns a ledger with the given accounts created.
func newTestLedger(t *testing.T, opts []Option, accounts ...string) *Ledger {
	t.Helper()
	l, err := NewLedger(opts...)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	for _, a := range accounts {
		if err := l.CreateAccount(a); err != nil {
			t.Fatalf("CreateAccount(%q) error = %v", a, err)
		}
	}
	return l
}

func mustAppend(t *testing.T, l *Ledger, account string, txs ...Transaction) {
	t.Helper()
	for _, tx := range txs {
		if _, err := l.Append(account, tx); err != nil {
			t.Fatalf("Append(%q, %v %v) error = %v", account, tx.Side, tx.Quantity, err)
		}
	}
}
