package vpower

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metapool/go-metavote/common/types"
)

func TestMultiplierEndpoints(t *testing.T) {
	b := DefaultBounds()
	one := new(big.Int).Set(scale)
	five := new(big.Int).Mul(scale, big.NewInt(5))

	require.Equal(t, one, Multiplier(b.MinLockDays, b))
	require.Equal(t, one, Multiplier(0, b))
	require.Equal(t, one, Multiplier(b.MinLockDays-1, b))
	require.Equal(t, five, Multiplier(b.MaxLockDays, b))
	require.Equal(t, five, Multiplier(b.MaxLockDays+100, b))
}

func TestMultiplierMonotone(t *testing.T) {
	b := DefaultBounds()
	prev := Multiplier(b.MinLockDays, b)
	for days := b.MinLockDays + 1; days <= b.MaxLockDays; days++ {
		cur := Multiplier(days, b)
		require.True(t, cur.Cmp(prev) >= 0, "multiplier decreased at %d days", days)
		prev = cur
	}
}

func TestCompute(t *testing.T) {
	b := DefaultBounds()

	t.Run("zero amount is zero power", func(t *testing.T) {
		for _, days := range []uint16{0, b.MinLockDays, 123, b.MaxLockDays} {
			require.True(t, Compute(types.Amount{}, days, b).IsZero())
		}
	})

	t.Run("endpoints and midpoint", func(t *testing.T) {
		ten := types.NewAmount(10)
		mid := (b.MinLockDays + b.MaxLockDays) / 2
		require.Equal(t, types.NewAmount(10), Compute(ten, b.MinLockDays, b))
		require.Equal(t, types.NewAmount(50), Compute(ten, b.MaxLockDays, b))
		require.Equal(t, types.NewAmount(30), Compute(ten, mid, b))
	})

	t.Run("scaled units", func(t *testing.T) {
		// 100 tokens with 24 decimals at max lock -> 500 tokens worth of power.
		amount := types.MustParseAmount("100000000000000000000000000")
		require.Equal(t,
			types.MustParseAmount("500000000000000000000000000"),
			Compute(amount, b.MaxLockDays, b))
	})
}

func TestBounds(t *testing.T) {
	require.NoError(t, DefaultBounds().Validate())
	require.Error(t, Bounds{MinLockDays: 30, MaxLockDays: 30}.Validate())
	require.Error(t, Bounds{MinLockDays: 60, MaxLockDays: 30}.Validate())

	b := DefaultBounds()
	require.True(t, b.Contains(b.MinLockDays))
	require.True(t, b.Contains(b.MaxLockDays))
	require.False(t, b.Contains(b.MinLockDays-1))
	require.False(t, b.Contains(b.MaxLockDays+1))
}
