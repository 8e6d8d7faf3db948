package costbasis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single trade of an instrument. It is immutable once
// recorded in a ledger; corrections are made by removing it.
type Transaction struct {
	Timestamp  time.Time // Timestamp is metadata; ledgers keep insertion order.
	Instrument string    // Instrument is the normalized symbol, e.g. "2330.TW".
	Side       Side
	Quantity   Quantity // Quantity is the number of units traded, always positive.
	Price      Money    // Price is the unit price at execution.
	Memo       string   // Memo provides an optional rationale or note.
}

// NewBuy creates a Buy transaction. An empty price currency means the ledger
// currency.
func NewBuy(on time.Time, instrument string, quantity Quantity, price Money) Transaction {
	return Transaction{Timestamp: on, Instrument: instrument, Side: Buy, Quantity: quantity, Price: price}
}

// NewSell creates a Sell transaction.
func NewSell(on time.Time, instrument string, quantity Quantity, price Money) Transaction {
	return Transaction{Timestamp: on, Instrument: instrument, Side: Sell, Quantity: quantity, Price: price}
}

// NormalizeInstrument returns the canonical form of a symbol: trimmed and
// upper-cased.
func NormalizeInstrument(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Proceeds is the total amount exchanged, quantity times price.
func (t Transaction) Proceeds() Money { return t.Price.Mul(t.Quantity) }

// Validate checks the transaction fields and applies quick fixes: the
// instrument is normalized and an empty price currency is set to currency.
// It returns the fixed transaction, or a *ValidationError.
func (t Transaction) Validate(currency string) (Transaction, error) {
	t.Instrument = NormalizeInstrument(t.Instrument)
	if t.Instrument == "" {
		return t, &ValidationError{Field: "instrument", Reason: "is missing"}
	}
	if !t.Side.Valid() {
		return t, &ValidationError{Field: "side", Reason: "is not buy or sell"}
	}
	if !t.Quantity.IsPositive() {
		return t, &ValidationError{Field: "quantity", Reason: "must be positive, got " + t.Quantity.String()}
	}
	if t.Price.IsNegative() {
		return t, &ValidationError{Field: "price", Reason: "must not be negative, got " + t.Price.value.String()}
	}
	switch t.Price.Currency() {
	case "":
		t.Price = t.Price.In(currency)
	case currency:
	default:
		return t, &ValidationError{Field: "price", Reason: "currency " + t.Price.Currency() + " does not match ledger currency " + currency}
	}
	return t, nil
}

// Equal reports whether both transactions carry the same values.
func (t Transaction) Equal(o Transaction) bool {
	return t.Timestamp.Equal(o.Timestamp) &&
		t.Instrument == o.Instrument &&
		t.Side == o.Side &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) &&
		t.Memo == o.Memo
}

// MarshalJSON writes the transaction with a stable key order, the side being
// the "command" like every other ledger line.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("command", t.Side)
	w.Append("date", t.Timestamp.UTC().Format(time.RFC3339Nano))
	w.Append("instrument", t.Instrument)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	w.Optional("currency", t.Price.cur)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the format written by MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		Command    Side            `json:"command"`
		Date       time.Time       `json:"date"`
		Instrument string          `json:"instrument"`
		Quantity   Quantity        `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		Currency   string          `json:"currency"`
		Memo       string          `json:"memo"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*t = Transaction{
		Timestamp:  temp.Date,
		Instrument: temp.Instrument,
		Side:       temp.Command,
		Quantity:   temp.Quantity,
		Price:      M(temp.Price, temp.Currency),
		Memo:       temp.Memo,
	}
	return nil
}
