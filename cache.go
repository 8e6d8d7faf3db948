package costbasis

import (
	"errors"
	"fmt"
	"sync"
)

// Positions replays every instrument of an account and returns the positions
// sorted by instrument. Replay errors of all instruments are joined in the
// returned error; the positions are returned anyway.
func Positions(s Store, account string) ([]Position, error) {
	instruments, err := s.Instruments(account)
	if err != nil {
		return nil, err
	}
	var positions []Position
	var errs []error
	for _, instrument := range instruments {
		txs, err := s.List(account, instrument)
		if err != nil {
			return nil, err
		}
		pos, err := ComputePosition(txs)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", instrument, err))
		}
		positions = append(positions, pos)
	}
	return positions, errors.Join(errs...)
}

// PositionCache keeps the last computed position of every instrument and
// brings it up to date by applying only the transactions appended since.
// A removal anywhere in the sequence forces a full replay.
//
// The result is always equal to ComputePosition on the current sequence.
type PositionCache struct {
	store Store

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct{ account, instrument string }

type cacheEntry struct {
	pos   Position
	epoch uint64
	errs  []error
}

// NewPositionCache returns an empty cache in front of s.
func NewPositionCache(s Store) *PositionCache {
	return &PositionCache{store: s, entries: make(map[cacheKey]cacheEntry)}
}

// Position returns the current position of an instrument. Like
// ComputePosition, a non nil error may come with a meaningful position.
func (c *PositionCache) Position(account, instrument string) (Position, error) {
	pos, replayErrs, err := c.position(account, instrument)
	if err != nil {
		return Position{}, err
	}
	return pos, errors.Join(replayErrs...)
}

// position separates store errors from replay errors.
func (c *PositionCache) position(account, instrument string) (Position, []error, error) {
	instrument = NormalizeInstrument(instrument)
	seq, err := c.store.Sequence(account, instrument)
	if err != nil {
		return Position{}, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{account, instrument}
	e, ok := c.entries[key]
	if !ok || e.epoch != seq.Epoch || e.pos.Applied > len(seq.Transactions) {
		e = cacheEntry{epoch: seq.Epoch}
	}
	for i := e.pos.Applied; i < len(seq.Transactions); i++ {
		var err error
		e.pos, err = e.pos.Apply(i, seq.Transactions[i])
		if err != nil {
			e.errs = append(e.errs, err)
		}
	}
	c.entries[key] = e
	return e.pos, e.errs, nil
}

// Positions is the cached equivalent of the package-level Positions.
func (c *PositionCache) Positions(account string) ([]Position, error) {
	instruments, err := c.store.Instruments(account)
	if err != nil {
		return nil, err
	}
	var positions []Position
	var errs []error
	for _, instrument := range instruments {
		pos, replayErrs, err := c.position(account, instrument)
		if err != nil {
			return nil, err
		}
		if len(replayErrs) > 0 {
			errs = append(errs, fmt.Errorf("%s: %w", instrument, errors.Join(replayErrs...)))
		}
		positions = append(positions, pos)
	}
	return positions, errors.Join(errs...)
}

// Forget drops the cached positions of an account.
func (c *PositionCache) Forget(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.account == account {
			delete(c.entries, k)
		}
	}
}
