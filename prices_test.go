package costbasis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
)

func testPositions(t *testing.T) []Position {
	t.Helper()
	l := newTestLedger(t, nil, "main")
	mustAppend(t, l, "main",
		NewBuy(day(1, 1), "2330.TW", Q(10), EUR(100)),
		NewBuy(day(1, 1), "0050.TW", Q(4), EUR(50)),
		NewBuy(day(1, 1), "AAPL", Q(1), EUR(10)),
		NewSell(day(1, 2), "AAPL", Q(1), EUR(12)),
		NewBuy(day(1, 1), "DELISTED", Q(2), EUR(30)),
	)
	positions, err := Positions(l, "main")
	if err != nil {
		t.Fatal(err)
	}
	return positions
}

func TestResolvePrices(t *testing.T) {
	positions := testPositions(t)
	var calls atomic.Int32
	provider := PriceFunc(func(ctx context.Context, instrument string) (Money, error) {
		calls.Add(1)
		switch instrument {
		case "2330.TW":
			return EUR(120), nil
		case "0050.TW":
			return NO(55), nil
		default:
			return Money{}, fmt.Errorf("%w: %s is not quoted", ErrPriceUnavailable, instrument)
		}
	})

	prices, fallbacks, err := ResolvePrices(context.Background(), provider, positions)
	if err != nil {
		t.Fatalf("ResolvePrices() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("provider called %d times, want 3 (flat positions are not priced)", calls.Load())
	}
	if want := []string{"DELISTED"}; !slices.Equal(fallbacks, want) {
		t.Errorf("fallbacks = %v, want %v", fallbacks, want)
	}
	want := map[string]Money{"2330.TW": EUR(120), "0050.TW": EUR(55), "DELISTED": EUR(30)}
	if len(prices) != len(want) {
		t.Fatalf("prices = %v, want %v", prices, want)
	}
	for instrument, w := range want {
		if !prices[instrument].Equal(w) {
			t.Errorf("prices[%s] = %v %s, want %v", instrument, prices[instrument].Decimal(), prices[instrument].Currency(), w.Decimal())
		}
	}
}

func TestResolvePrices_Errors(t *testing.T) {
	positions := testPositions(t)
	boom := errors.New("connection reset")

	testCases := []struct {
		name  string
		price Money
		err   error
	}{
		{name: "provider failure", err: boom},
		{name: "foreign currency", price: USD(1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := PriceFunc(func(context.Context, string) (Money, error) { return tc.price, tc.err })
			_, _, err := ResolvePrices(context.Background(), provider, positions)
			if err == nil {
				t.Fatal("ResolvePrices() error = nil, want an error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Errorf("ResolvePrices() error = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	positions := testPositions(t)
	provider := PriceFunc(func(ctx context.Context, instrument string) (Money, error) {
		if instrument == "2330.TW" {
			return EUR(110), nil
		}
		return Money{}, ErrPriceUnavailable
	})
	s, fallbacks, err := Summarize(context.Background(), provider, positions)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"0050.TW", "DELISTED"}; !slices.Equal(fallbacks, want) {
		t.Errorf("fallbacks = %v, want %v", fallbacks, want)
	}
	if len(s.Holdings) != 3 {
		t.Fatalf("Holdings = %+v, want 3", s.Holdings)
	}
	if !s.TotalPnL.Equal(EUR(100)) {
		t.Errorf("TotalPnL = %v, want 100", s.TotalPnL.Decimal())
	}
}
