package costbasis

import (
	"fmt"
	"strings"
)

// Side tells whether a transaction adds units to a position or removes them.
type Side int

const (
	// Buy acquires units at the transaction price.
	Buy Side = iota + 1
	// Sell disposes of units at the transaction price.
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a recognized side.
func (s Side) Valid() bool { return s == Buy || s == Sell }

// ParseSide parses "buy" or "sell", ignoring case and surrounding spaces.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side: %q", s)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal side %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
