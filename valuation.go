package costbasis

import (
	"cmp"
	"fmt"
	"slices"
)

// Valuation is a position marked to a market price.
type Valuation struct {
	Price            Money
	MarketValue      Money
	UnrealizedPnL    Money
	UnrealizedPnLPct Percent // 0 when there is no cost basis
	TotalPnL         Money   // realized plus unrealized
	UnitPnL          Money   // price minus average cost
}

// ComputeValuation marks pos to price.
func ComputeValuation(pos Position, price Money) Valuation {
	market := price.Mul(pos.Quantity)
	unrealized := market.Sub(pos.CostBasis)
	return Valuation{
		Price:            price,
		MarketValue:      market,
		UnrealizedPnL:    unrealized,
		UnrealizedPnLPct: unrealized.Percent(pos.CostBasis),
		TotalPnL:         pos.RealizedPnL.Add(unrealized),
		UnitPnL:          price.Sub(pos.AverageCost()),
	}
}

// Holding is one held instrument of an account summary.
type Holding struct {
	Position
	Valuation
}

// AccountSummary rolls up every held position of an account.
type AccountSummary struct {
	Holdings         []Holding // sorted by instrument
	TotalMarketValue Money
	TotalCostBasis   Money
	TotalPnL         Money
	TotalPnLPct      Percent
}

// ComputeAccountSummary values every position with a positive quantity at its
// price in prices, keyed by instrument, and sums them. Flat positions are
// ignored. A held position without a price is an error wrapping
// ErrPriceUnavailable: the caller decides the fallback before calling.
func ComputeAccountSummary(positions []Position, prices map[string]Money) (AccountSummary, error) {
	var s AccountSummary
	for _, pos := range positions {
		if !pos.Quantity.IsPositive() {
			continue
		}
		price, ok := prices[pos.Instrument]
		if !ok {
			return AccountSummary{}, fmt.Errorf("%w: no price for %s", ErrPriceUnavailable, pos.Instrument)
		}
		v := ComputeValuation(pos, price)
		s.Holdings = append(s.Holdings, Holding{Position: pos, Valuation: v})
		s.TotalMarketValue = s.TotalMarketValue.Add(v.MarketValue)
		s.TotalCostBasis = s.TotalCostBasis.Add(pos.CostBasis)
		s.TotalPnL = s.TotalPnL.Add(v.TotalPnL)
	}
	slices.SortFunc(s.Holdings, func(a, b Holding) int { return cmp.Compare(a.Instrument, b.Instrument) })
	s.TotalPnLPct = s.TotalPnL.Percent(s.TotalCostBasis)
	return s, nil
}
