package costbasis

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TransactionID locates a transaction in a ledger.
type TransactionID struct {
	Account    string
	Instrument string
	Index      int
}

func (id TransactionID) String() string {
	return fmt.Sprintf("%s/%s#%d", id.Account, id.Instrument, id.Index)
}

// Sequence is a consistent snapshot of one instrument's transactions.
//
// Epoch increases every time a transaction is removed from the sequence, so a
// reader holding an older snapshot with the same Epoch knows the new one only
// grew at the end.
type Sequence struct {
	Transactions []Transaction
	Epoch        uint64
}

// Store is the ledger storage contract shared by the in-memory Ledger and the
// durable stores.
type Store interface {
	CreateAccount(name string) error
	Accounts() ([]string, error)
	Append(account string, tx Transaction) (TransactionID, error)
	Remove(account, instrument string, index int) (Transaction, error)
	List(account, instrument string) ([]Transaction, error)
	Instruments(account string) ([]string, error)
	Sequence(account, instrument string) (Sequence, error)
	Currency() string
}

// Ledger is an in-memory Store.
//
// Writers to the same account and instrument are serialized; everything else
// runs in parallel. Readers always see a whole number of transactions.
type Ledger struct {
	currency string
	strict   bool
	log      zerolog.Logger

	mu       sync.RWMutex
	accounts map[string]*account
}

// account owns the instrument sequences of one account.
type account struct {
	mu          sync.RWMutex
	instruments map[string]*sequence
}

// sequence is the append-only list of one instrument.
type sequence struct {
	mu    sync.RWMutex
	txs   []Transaction
	epoch uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCurrency sets the ledger currency. It defaults to EUR.
func WithCurrency(code string) Option {
	return func(l *Ledger) { l.currency = strings.ToUpper(code) }
}

// WithStrictSells controls whether Append refuses a sell when nothing is held.
// It is on by default.
func WithStrictSells(strict bool) Option {
	return func(l *Ledger) { l.strict = strict }
}

// WithLogger sets the logger used to trace mutations.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		currency: "EUR",
		strict:   true,
		log:      zerolog.Nop(),
		accounts: make(map[string]*account),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := ValidateCurrency(l.currency); err != nil {
		return nil, fmt.Errorf("invalid ledger currency: %w", err)
	}
	return l, nil
}

// Currency returns the single currency of every price in this ledger.
func (l *Ledger) Currency() string { return l.currency }

// Strict reports whether uncovered sells are refused at append time.
func (l *Ledger) Strict() bool { return l.strict }

// CreateAccount adds an empty account.
func (l *Ledger) CreateAccount(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "account", Reason: "name is missing"}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAccount, name)
	}
	l.accounts[name] = &account{instruments: make(map[string]*sequence)}
	l.log.Debug().Str("account", name).Msg("account created")
	return nil
}

// Accounts returns the sorted account names.
func (l *Ledger) Accounts() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.accounts)), nil
}

func (l *Ledger) account(name string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	return a, nil
}

// sequence returns the instrument sequence, creating it when create is true.
// It returns nil when the instrument has never been traded.
func (a *account) sequence(instrument string, create bool) *sequence {
	a.mu.RLock()
	s, ok := a.instruments[instrument]
	a.mu.RUnlock()
	if ok || !create {
		return s
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok = a.instruments[instrument]; !ok {
		s = new(sequence)
		a.instruments[instrument] = s
	}
	return s
}

// Append validates tx and records it at the end of its instrument sequence.
func (l *Ledger) Append(accountName string, tx Transaction) (TransactionID, error) {
	tx, err := tx.Validate(l.currency)
	if err != nil {
		return TransactionID{}, err
	}
	a, err := l.account(accountName)
	if err != nil {
		return TransactionID{}, err
	}

	s := a.sequence(tx.Instrument, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.strict && tx.Side == Sell {
		if err := checkCovered(s.txs, tx); err != nil {
			l.log.Warn().Str("account", accountName).Str("instrument", tx.Instrument).Err(err).Msg("sell refused")
			return TransactionID{}, err
		}
	}

	s.txs = append(s.txs, tx)
	id := TransactionID{Account: strings.TrimSpace(accountName), Instrument: tx.Instrument, Index: len(s.txs) - 1}
	l.log.Debug().Stringer("id", id).Stringer("side", tx.Side).Stringer("quantity", tx.Quantity).Msg("transaction appended")
	return id, nil
}

// checkCovered refuses a sell when the replayed position holds nothing.
func checkCovered(txs []Transaction, sell Transaction) error {
	pos, _ := ComputePosition(txs)
	if pos.Quantity.IsPositive() {
		return nil
	}
	return &InvalidSellError{Index: len(txs), Instrument: sell.Instrument, Quantity: sell.Quantity}
}

// Remove deletes and returns the transaction at index. It does not check that
// the remaining sequence is still covered: replay reports any sell that became
// invalid.
func (l *Ledger) Remove(accountName, instrument string, index int) (Transaction, error) {
	a, err := l.account(accountName)
	if err != nil {
		return Transaction{}, err
	}
	instrument = NormalizeInstrument(instrument)
	s := a.sequence(instrument, false)
	if s == nil {
		return Transaction{}, fmt.Errorf("%w: no transaction for %s in %q", ErrNotFound, instrument, accountName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.txs) {
		return Transaction{}, fmt.Errorf("%w: index %d out of range [0,%d) for %s", ErrNotFound, index, len(s.txs), instrument)
	}
	tx := s.txs[index]
	// never reuse the backing array: published snapshots must stay untouched.
	s.txs = slices.Concat(s.txs[:index], s.txs[index+1:])
	s.epoch++
	l.log.Debug().Str("account", accountName).Str("instrument", instrument).Int("index", index).Msg("transaction removed")
	return tx, nil
}

// Sequence returns a snapshot of an instrument's transactions. An instrument
// never traded yields an empty sequence.
func (l *Ledger) Sequence(accountName, instrument string) (Sequence, error) {
	a, err := l.account(accountName)
	if err != nil {
		return Sequence{}, err
	}
	s := a.sequence(NormalizeInstrument(instrument), false)
	if s == nil {
		return Sequence{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Sequence{Transactions: slices.Clone(s.txs), Epoch: s.epoch}, nil
}

// List returns a copy of an instrument's transactions in insertion order.
func (l *Ledger) List(accountName, instrument string) ([]Transaction, error) {
	seq, err := l.Sequence(accountName, instrument)
	return seq.Transactions, err
}

// Instruments returns the sorted instruments that have at least one
// transaction in the account.
func (l *Ledger) Instruments(accountName string) ([]string, error) {
	a, err := l.account(accountName)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var res []string
	for name, s := range a.instruments {
		s.mu.RLock()
		n := len(s.txs)
		s.mu.RUnlock()
		if n > 0 {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res, nil
}
