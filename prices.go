package costbasis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PriceProvider returns the last known price of an instrument. Providers
// return an error wrapping ErrPriceUnavailable when they have no price.
type PriceProvider interface {
	LastPrice(ctx context.Context, instrument string) (Money, error)
}

// PriceFunc adapts a function to a PriceProvider.
type PriceFunc func(ctx context.Context, instrument string) (Money, error)

func (f PriceFunc) LastPrice(ctx context.Context, instrument string) (Money, error) {
	return f(ctx, instrument)
}

// maxPriceFetches bounds concurrent calls to a provider.
const maxPriceFetches = 8

// ResolvePrices fetches the price of every held position concurrently.
//
// When the provider reports ErrPriceUnavailable, the position's average cost is
// used instead, so that instrument shows no unrealized P&L; those instruments
// are returned in fallbacks, sorted like positions. Any other provider error
// aborts the resolution.
func ResolvePrices(ctx context.Context, provider PriceProvider, positions []Position) (prices map[string]Money, fallbacks []string, err error) {
	prices = make(map[string]Money)
	fallback := make([]bool, len(positions))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPriceFetches)
	for i, pos := range positions {
		if !pos.Quantity.IsPositive() {
			continue
		}
		g.Go(func() error {
			price, err := provider.LastPrice(ctx, pos.Instrument)
			switch {
			case errors.Is(err, ErrPriceUnavailable):
				price = pos.AverageCost()
				fallback[i] = true
			case err != nil:
				return fmt.Errorf("could not get price of %s: %w", pos.Instrument, err)
			case price.Currency() == "":
				price = price.In(pos.CostBasis.Currency())
			case price.Currency() != pos.CostBasis.Currency():
				return fmt.Errorf("price of %s is in %s, ledger is in %s", pos.Instrument, price.Currency(), pos.CostBasis.Currency())
			}
			mu.Lock()
			prices[pos.Instrument] = price
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i, pos := range positions {
		if fallback[i] {
			fallbacks = append(fallbacks, pos.Instrument)
		}
	}
	return prices, fallbacks, nil
}

// Summarize resolves prices for positions and rolls them up. It is the usual
// path from a ledger to an AccountSummary.
func Summarize(ctx context.Context, provider PriceProvider, positions []Position) (AccountSummary, []string, error) {
	prices, fallbacks, err := ResolvePrices(ctx, provider, positions)
	if err != nil {
		return AccountSummary{}, nil, err
	}
	summary, err := ComputeAccountSummary(positions, prices)
	return summary, fallbacks, err
}
