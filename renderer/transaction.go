package renderer

import (
	"github.com/etnz/costbasis"
)

// Transactions is an account transaction log.
type Transactions struct {
	Account string
	Rows    []TransactionRow
}

// TransactionRow is a transaction with its index in the instrument sequence,
// the index used to remove it.
type TransactionRow struct {
	Index int
	costbasis.Transaction
}

// Add appends the sequence of one instrument.
func (t *Transactions) Add(txs []costbasis.Transaction) {
	for i, tx := range txs {
		t.Rows = append(t.Rows, TransactionRow{Index: i, Transaction: tx})
	}
}

// RenderTransactions renders the log as a table.
func RenderTransactions(t *Transactions) string {
	return renderTemplate("transactions", "transactions.md", nil, t)
}
