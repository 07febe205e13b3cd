package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPositionStatus(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("locked regardless of time", func(t *testing.T) {
		p := LockingPosition{LockingPeriodDays: 30}
		require.Equal(t, Locked, p.Status(now))
		require.Equal(t, Locked, p.Status(now.Add(100*365*24*time.Hour)))
	})

	t.Run("unlocking until the period ends", func(t *testing.T) {
		started := now
		p := LockingPosition{LockingPeriodDays: 30, UnlockingStartedAt: &started}
		end := started.Add(30 * 24 * time.Hour)
		require.Equal(t, Unlocking, p.Status(started))
		require.Equal(t, Unlocking, p.Status(end.Add(-time.Millisecond)))
		require.Equal(t, Unlocked, p.Status(end))
		require.Equal(t, Unlocked, p.Status(end.Add(time.Hour)))
	})
}

func TestRemainingUnlockTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	started := now.Add(-24 * time.Hour)
	p := LockingPosition{LockingPeriodDays: 3, UnlockingStartedAt: &started}

	remaining, err := p.RemainingUnlockTime(now)
	require.NoError(t, err)
	require.Equal(t, 2*24*time.Hour, remaining)

	t.Run("not started", func(t *testing.T) {
		p := LockingPosition{LockingPeriodDays: 3}
		_, err := p.RemainingUnlockTime(now)
		require.ErrorIs(t, err, ErrNotUnlocking)
	})

	t.Run("fully released", func(t *testing.T) {
		_, err := p.RemainingUnlockTime(started.Add(4 * 24 * time.Hour))
		require.ErrorIs(t, err, ErrFullyReleased)
	})
}

func TestPositionWireFormat(t *testing.T) {
	data := []byte(`{
		"index": 7,
		"amount": "100000000000000000000000000",
		"locking_period": 300,
		"voting_power": "500000000000000000000000000",
		"unlocking_started_at": 1709294400000
	}`)
	var p LockingPosition
	require.NoError(t, json.Unmarshal(data, &p))
	require.Equal(t, uint64(7), p.Index)
	require.Equal(t, uint16(300), p.LockingPeriodDays)
	require.Equal(t, MustParseAmount("100000000000000000000000000"), p.Amount)
	require.NotNil(t, p.UnlockingStartedAt)
	require.Equal(t, time.UnixMilli(1709294400000).UTC(), *p.UnlockingStartedAt)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	var back LockingPosition
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, p, back)

	t.Run("null unlocking_started_at means locked", func(t *testing.T) {
		var p LockingPosition
		require.NoError(t, json.Unmarshal([]byte(`{"index":1,"amount":"5","locking_period":30,"voting_power":"5","unlocking_started_at":null}`), &p))
		require.Nil(t, p.UnlockingStartedAt)
		require.Equal(t, Locked, p.Status(time.Now()))
	})
}

func TestAmountParsing(t *testing.T) {
	for _, tc := range []struct {
		s  string
		ok bool
	}{
		{"0", true},
		{"340282366920938463463374607431768211455", true}, // 2^128-1
		{"-1", false},
		{"1.5", false},
		{"", false},
		{"1e10", false},
	} {
		_, err := ParseAmount(tc.s)
		if tc.ok {
			require.NoError(t, err, tc.s)
		} else {
			require.Error(t, err, tc.s)
		}
	}

	t.Run("json rejects bare numbers", func(t *testing.T) {
		var a Amount
		require.Error(t, json.Unmarshal([]byte(`100`), &a))
		require.NoError(t, json.Unmarshal([]byte(`"100"`), &a))
		require.Equal(t, "100", a.String())
	})
}

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(70)
	b := NewAmount(30)
	require.Equal(t, NewAmount(100), a.Add(b))
	require.Equal(t, NewAmount(40), a.Sub(b))
	require.Equal(t, 1, a.Cmp(b))
	require.True(t, Amount{}.IsZero())
	require.Panics(t, func() { b.Sub(a) })
}
