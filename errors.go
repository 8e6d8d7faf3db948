package costbasis

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them; the concrete errors below
// wrap them.
var (
	// ErrValidation marks a malformed transaction: non-positive quantity,
	// negative price, unknown side, missing instrument or foreign currency.
	ErrValidation = errors.New("invalid transaction")

	// ErrInvalidSell marks a sell against an empty or depleted position.
	ErrInvalidSell = errors.New("invalid sell")

	// ErrNotFound marks a lookup of a missing account or transaction index.
	ErrNotFound = errors.New("not found")

	// ErrAccountNotFound indicates that the account was never created.
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

	// ErrDuplicateAccount indicates that an account with that name already exists.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrPriceUnavailable is returned by price providers when no price can be
	// obtained for an instrument. Callers fall back to the average cost.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// ValidationError describes why a transaction was refused.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidSellError is a sell that found nothing to sell. Index is the position
// of the transaction in its sequence.
type InvalidSellError struct {
	Index      int
	Instrument string
	Quantity   Quantity
}

func (e *InvalidSellError) Error() string {
	return fmt.Sprintf("%s: transaction #%d sells %v %s but nothing is held", ErrInvalidSell, e.Index, e.Quantity, e.Instrument)
}

func (e *InvalidSellError) Unwrap() error { return ErrInvalidSell }

// OversellWarning records a sell that asked for more units than were held.
// The sell was clamped to Applied; the remainder was ignored.
type OversellWarning struct {
	Index     int
	Requested Quantity
	Applied   Quantity
}

func (w OversellWarning) String() string {
	return fmt.Sprintf("transaction #%d sells %v but only %v held", w.Index, w.Requested, w.Applied)
}
