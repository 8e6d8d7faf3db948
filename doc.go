// Package costbasis keeps a ledger of trades for several accounts and derives
// positions from it with the weighted-average cost method.
//
// The package has two parts:
//   - Ledger Store: accounts own, per instrument, an append-only sequence of
//     Buy and Sell transactions kept in insertion order. Transactions are
//     validated on the way in and can be removed by index for corrections.
//   - Cost-Basis Engine: a stateless replay of a sequence into a Position
//     (quantity held, cost basis, realized P&L), a Valuation against a price
//     supplied by the caller, and an AccountSummary over all held positions.
//
// Positions are never stored. They are recomputed from the ledger, either by a
// full replay (ComputePosition) or incrementally by a PositionCache that only
// applies transactions appended since the last call.
//
// Prices come from a PriceProvider. When a provider has no price, callers fall
// back to the average cost of the position, see ResolvePrices.
//
// A ledger uses a single currency. Amounts are exact decimals.
package costbasis
