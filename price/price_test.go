package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/rs/zerolog"
)

func TestStatic(t *testing.T) {
	s := Static{"2330.TW": costbasis.M(650, "TWD")}
	got, err := s.LastPrice(context.Background(), "2330.tw")
	if err != nil || !got.Equal(costbasis.M(650, "TWD")) {
		t.Errorf("LastPrice() = %v, %v", got, err)
	}
	if _, err := s.LastPrice(context.Background(), "AAPL"); !errors.Is(err, costbasis.ErrPriceUnavailable) {
		t.Errorf("LastPrice(unknown) error = %v, want ErrPriceUnavailable", err)
	}
}

func TestLoadStatic(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	path := write("prices.yaml", `
currency: TWD
prices:
  2330.tw: 650
  0050.TW: "187.35"
`)
	s, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic() error = %v", err)
	}
	want := Static{"2330.TW": costbasis.M(650, "TWD"), "0050.TW": costbasis.M(187.35, "TWD")}
	if len(s) != len(want) {
		t.Fatalf("LoadStatic() = %v, want %v", s, want)
	}
	for k, v := range want {
		if !s[k].Equal(v) {
			t.Errorf("LoadStatic()[%s] = %v, want %v", k, s[k].Decimal(), v.Decimal())
		}
	}

	testCases := []struct{ name, content string }{
		{"bad currency", "currency: ZZZZ\nprices:\n  A: 1\n"},
		{"bad price", "prices:\n  A: one\n"},
		{"not yaml", "prices: [1, 2\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadStatic(write(tc.name+".yaml", tc.content)); err == nil {
				t.Error("LoadStatic() error = nil, want an error")
			}
		})
	}
	if _, err := LoadStatic(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadStatic(missing) error = nil")
	}
}

func quoteServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("symbol") {
		case "2330.TW":
			fmt.Fprint(w, `{"quote":{"last":650.5}}`)
		case "SAP.DE":
			fmt.Fprint(w, `{"quote":{"last":"212,40"}}`)
		case "HALTED":
			fmt.Fprint(w, `{"quote":{"last":0}}`)
		case "EMPTY":
			fmt.Fprint(w, `{"quote":{}}`)
		case "BROKEN":
			http.Error(w, "upstream failure", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHTTP_LastPrice(t *testing.T) {
	srv, _ := quoteServer(t)
	h := &HTTP{URL: srv.URL + "/q?symbol={symbol}", Path: "$.quote.last", Currency: "EUR"}

	testCases := []struct {
		symbol      string
		want        costbasis.Money
		unavailable bool
		fails       bool
	}{
		{symbol: "2330.TW", want: costbasis.M(650.5, "EUR")},
		{symbol: "SAP.DE", want: costbasis.M(212.4, "EUR")},
		{symbol: "HALTED", unavailable: true},
		{symbol: "EMPTY", unavailable: true},
		{symbol: "UNKNOWN", unavailable: true},
		{symbol: "BROKEN", fails: true},
	}
	for _, tc := range testCases {
		t.Run(tc.symbol, func(t *testing.T) {
			got, err := h.LastPrice(context.Background(), tc.symbol)
			switch {
			case tc.unavailable:
				if !errors.Is(err, costbasis.ErrPriceUnavailable) {
					t.Errorf("LastPrice() error = %v, want ErrPriceUnavailable", err)
				}
			case tc.fails:
				if err == nil || errors.Is(err, costbasis.ErrPriceUnavailable) {
					t.Errorf("LastPrice() error = %v, want a hard failure", err)
				}
			default:
				if err != nil {
					t.Fatalf("LastPrice() error = %v", err)
				}
				if !got.Equal(tc.want) {
					t.Errorf("LastPrice() = %v %s, want %v", got.Decimal(), got.Currency(), tc.want.Decimal())
				}
			}
		})
	}
}

func TestHTTP_ResolvePrices(t *testing.T) {
	srv, _ := quoteServer(t)
	h := &HTTP{URL: srv.URL + "/q?symbol={symbol}", Path: "$.quote.last"}

	held, _ := costbasis.ComputePosition([]costbasis.Transaction{
		costbasis.NewBuy(time.Now(), "2330.TW", costbasis.Q(10), costbasis.M(600, "EUR")),
	})
	gone, _ := costbasis.ComputePosition([]costbasis.Transaction{
		costbasis.NewBuy(time.Now(), "DELISTED", costbasis.Q(2), costbasis.M(30, "EUR")),
	})
	prices, fallbacks, err := costbasis.ResolvePrices(context.Background(), h, []costbasis.Position{held, gone})
	if err != nil {
		t.Fatalf("ResolvePrices() error = %v", err)
	}
	if !prices["2330.TW"].Equal(costbasis.M(650.5, "EUR")) {
		t.Errorf("prices[2330.TW] = %v", prices["2330.TW"].Decimal())
	}
	if !prices["DELISTED"].Equal(costbasis.M(30, "EUR")) || len(fallbacks) != 1 {
		t.Errorf("DELISTED = %v, fallbacks %v; want the average cost as fallback", prices["DELISTED"].Decimal(), fallbacks)
	}
}

func TestDailyCache(t *testing.T) {
	srv, hits := quoteServer(t)
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	cache := &DailyCache{Dir: t.TempDir(), Log: zerolog.Nop(), now: func() time.Time { return day }}
	h := &HTTP{URL: srv.URL + "/q?symbol={symbol}", Path: "$.quote.last", Client: &http.Client{Transport: cache}}

	for range 3 {
		if _, err := h.LastPrice(context.Background(), "2330.TW"); err != nil {
			t.Fatal(err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}

	day = day.AddDate(0, 0, 1)
	if _, err := h.LastPrice(context.Background(), "2330.TW"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times the next day, want 2", hits.Load())
	}

	// failures are never cached.
	for range 2 {
		h.LastPrice(context.Background(), "UNKNOWN")
	}
	if hits.Load() != 4 {
		t.Errorf("server hit %d times, want 4", hits.Load())
	}
}
