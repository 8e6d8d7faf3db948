package costbasis

import (
	"errors"
	"slices"
)

// Status distinguishes the two flat states of a position.
type Status int

const (
	// Empty means nothing was ever bought.
	Empty Status = iota
	// Held means some units are held.
	Held
	// Liquidated means units were held and have all been sold.
	Liquidated
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Held:
		return "held"
	case Liquidated:
		return "liquidated"
	default:
		return "unknown"
	}
}

// Position is the state of one instrument after replaying its transactions
// with the weighted-average cost method.
//
// Position is a value: Apply returns a new Position and never modifies the
// receiver, so a Position can be cached and shared between goroutines.
type Position struct {
	Instrument  string
	Quantity    Quantity // Quantity held, never negative.
	CostBasis   Money    // CostBasis is the cost attributed to Quantity.
	RealizedPnL Money    // RealizedPnL accumulates the gains locked in by sells.
	Status      Status
	Warnings    []OversellWarning
	Applied     int // Applied counts the transactions consumed, rejected ones included.
}

// AverageCost returns the cost of one held unit, or zero when nothing is held.
func (p Position) AverageCost() Money {
	if !p.Quantity.IsPositive() {
		return M(0, p.CostBasis.Currency())
	}
	return p.CostBasis.Div(p.Quantity)
}

// Liquidated reports whether the position was held and is now flat.
func (p Position) Liquidated() bool { return p.Status == Liquidated }

// Equal compares the computed state: quantity, cost basis, realized P&L,
// status and warnings. Instrument and Applied are bookkeeping and are not
// compared, so a position that only saw rejected transactions equals the
// zero Position.
func (p Position) Equal(o Position) bool {
	return p.Quantity.Equal(o.Quantity) &&
		p.CostBasis.Equal(o.CostBasis) &&
		p.RealizedPnL.Equal(o.RealizedPnL) &&
		p.Status == o.Status &&
		slices.EqualFunc(p.Warnings, o.Warnings, func(a, b OversellWarning) bool {
			return a.Index == b.Index && a.Requested.Equal(b.Requested) && a.Applied.Equal(b.Applied)
		})
}

// Apply returns the position after transaction tx, found at index in its
// sequence. A rejected transaction leaves the position unchanged apart from
// Applied, which counts every transaction seen, and the error says why. A
// transaction on another instrument than the position's is rejected.
func (p Position) Apply(index int, tx Transaction) (Position, error) {
	p.Applied++
	if p.Instrument == "" {
		p.Instrument = NormalizeInstrument(tx.Instrument)
	}
	currency := p.CostBasis.Currency()
	if currency == "" {
		currency = tx.Price.Currency()
	}
	tx, err := tx.Validate(currency)
	if err != nil {
		return p, err
	}
	if tx.Instrument != p.Instrument {
		return p, &ValidationError{Field: "instrument", Reason: "is " + tx.Instrument + ", want " + p.Instrument}
	}
	p.CostBasis = p.CostBasis.In(currency)
	p.RealizedPnL = p.RealizedPnL.In(currency)

	switch tx.Side {
	case Buy:
		p.Quantity = p.Quantity.Add(tx.Quantity)
		p.CostBasis = p.CostBasis.Add(tx.Proceeds())
		p.Status = Held

	case Sell:
		if !p.Quantity.IsPositive() {
			return p, &InvalidSellError{Index: index, Instrument: p.Instrument, Quantity: tx.Quantity}
		}
		sold := tx.Quantity.Min(p.Quantity)
		// cost*sold/held is sold*average without rounding the average first.
		costOfSale := p.CostBasis
		if sold.LessThan(p.Quantity) {
			costOfSale = p.CostBasis.Mul(sold).Div(p.Quantity)
		}
		p.RealizedPnL = p.RealizedPnL.Add(tx.Price.Mul(sold).Sub(costOfSale))
		p.CostBasis = p.CostBasis.Sub(costOfSale)
		p.Quantity = p.Quantity.Sub(sold)
		if tx.Quantity.GreaterThan(sold) {
			p.Warnings = append(slices.Clip(p.Warnings), OversellWarning{Index: index, Requested: tx.Quantity, Applied: sold})
		}
		if p.Quantity.IsZero() {
			p.Status = Liquidated
		}
	}
	return p, nil
}

// ComputePosition replays txs in order and returns the resulting position.
//
// Transactions that cannot be applied (malformed ones, or sells with nothing
// held) are skipped and reported in the returned error, which joins one error
// per rejected transaction. The position is meaningful even when the error is
// not nil.
func ComputePosition(txs []Transaction) (Position, error) {
	return replay(Position{}, txs, 0)
}

// replay applies txs to p, numbering them from offset.
func replay(p Position, txs []Transaction, offset int) (Position, error) {
	var errs []error
	for i, tx := range txs {
		var err error
		p, err = p.Apply(offset+i, tx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return p, errors.Join(errs...)
}
