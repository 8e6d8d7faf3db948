// Package price provides costbasis.PriceProvider implementations.
package price

import (
	"context"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"gopkg.in/yaml.v3"
)

// Static serves prices from a fixed map keyed by instrument.
type Static map[string]costbasis.Money

// LastPrice implements costbasis.PriceProvider.
func (s Static) LastPrice(_ context.Context, instrument string) (costbasis.Money, error) {
	p, ok := s[costbasis.NormalizeInstrument(instrument)]
	if !ok {
		return costbasis.Money{}, fmt.Errorf("%w: no quote for %s", costbasis.ErrPriceUnavailable, instrument)
	}
	return p, nil
}

// staticFile is the YAML layout read by LoadStatic:
//
//	currency: TWD
//	prices:
//	  2330.TW: 650
//	  0050.TW: "187.35"
type staticFile struct {
	Currency string            `yaml:"currency"`
	Prices   map[string]string `yaml:"prices"`
}

// LoadStatic reads a YAML price file. Prices without a currency in the file
// take the ledger currency when they are resolved.
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse price file %q: %w", path, err)
	}
	if f.Currency != "" {
		if err := costbasis.ValidateCurrency(f.Currency); err != nil {
			return nil, fmt.Errorf("price file %q: %w", path, err)
		}
	}
	res := make(Static, len(f.Prices))
	for instrument, v := range f.Prices {
		p, err := costbasis.ParseMoney(v, f.Currency)
		if err != nil {
			return nil, fmt.Errorf("price file %q: invalid price for %s: %w", path, instrument, err)
		}
		res[costbasis.NormalizeInstrument(instrument)] = p
	}
	return res, nil
}
