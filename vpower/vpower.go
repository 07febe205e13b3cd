// Package vpower implements the deposit-to-voting-power math used to preview
// a lock before submission. Voting power of an existing position is whatever
// the ledger returned at creation time; nothing here overwrites it.
package vpower

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/metapool/go-metavote/common/types"
)

// scale is the fixed-point unit for multipliers. It matches the ledger's
// 24-decimal internal representation so previews agree bit-for-bit with the
// value the ledger will mint.
var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)

var (
	// ErrPeriodOutOfBounds is returned when a lock period falls outside the
	// ledger-configured range.
	ErrPeriodOutOfBounds = errors.New("locking period out of bounds")
	// ErrInvalidBounds is returned for a degenerate bounds configuration.
	ErrInvalidBounds = errors.New("invalid locking period bounds")
)

// Bounds is the ledger-configured locking period range, in days. The
// authoritative values come from the get_locking_period view; the compiled
// defaults are only a fallback for offline previews.
type Bounds struct {
	MinLockDays uint16 `mapstructure:"min-lock-days"`
	MaxLockDays uint16 `mapstructure:"max-lock-days"`
}

// DefaultBounds returns the bounds the ledger ships with.
func DefaultBounds() Bounds {
	return Bounds{MinLockDays: 30, MaxLockDays: 300}
}

// Validate checks that the bounds describe a non-degenerate range.
func (b Bounds) Validate() error {
	if b.MinLockDays >= b.MaxLockDays {
		return fmt.Errorf("%w: min %d >= max %d", ErrInvalidBounds, b.MinLockDays, b.MaxLockDays)
	}
	return nil
}

// Contains reports whether days is a valid locking period under b.
func (b Bounds) Contains(days uint16) bool {
	return days >= b.MinLockDays && days <= b.MaxLockDays
}

// proportional returns amount * numerator / denominator without overflow,
// matching the ledger's widened integer division.
func proportional(amount, numerator, denominator *big.Int) *big.Int {
	r := new(big.Int).Mul(amount, numerator)
	return r.Quo(r, denominator)
}

// Multiplier returns the voting power multiplier for a lock of the given
// length as a fixed-point value scaled by 10^24. The curve is f(x) = 1 + 4x
// where x is the position of days within [min, max]: 1x at or below the
// minimum, 5x at or above the maximum, linear in between.
func Multiplier(days uint16, b Bounds) *big.Int {
	switch {
	case days <= b.MinLockDays:
		return new(big.Int).Set(scale)
	case days >= b.MaxLockDays:
		return new(big.Int).Mul(scale, big.NewInt(5))
	}
	span := proportional(
		new(big.Int).Mul(scale, big.NewInt(4)),
		big.NewInt(int64(days-b.MinLockDays)),
		big.NewInt(int64(b.MaxLockDays-b.MinLockDays)),
	)
	return span.Add(span, scale)
}

// Compute returns the voting power minted for locking amount over the given
// number of days: amount × multiplier(days). A zero amount yields zero power
// for any period.
func Compute(amount types.Amount, days uint16, b Bounds) types.Amount {
	if amount.IsZero() {
		return types.Amount{}
	}
	power := proportional(amount.BigInt(), Multiplier(days, b), scale)
	out, err := types.ParseAmount(power.String())
	if err != nil {
		// amount and multiplier are both non-negative, so this is unreachable.
		panic(err)
	}
	return out
}
