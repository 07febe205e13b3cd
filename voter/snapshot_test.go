package voter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/metapool/go-metavote/common/types"
)

func TestSnapshotAggregates(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	unlockingStart := now.Add(-24 * time.Hour)
	releasedStart := now.Add(-40 * 24 * time.Hour)

	snap := &Snapshot{
		Positions: []types.LockingPosition{
			{Index: 0, Amount: types.NewAmount(100), LockingPeriodDays: 300},
			{Index: 1, Amount: types.NewAmount(50), LockingPeriodDays: 30, UnlockingStartedAt: &unlockingStart},
			{Index: 2, Amount: types.NewAmount(25), LockingPeriodDays: 30, UnlockingStartedAt: &releasedStart},
		},
	}

	require.Equal(t, types.NewAmount(100), snap.MetaLocked(now))
	require.Equal(t, types.NewAmount(50), snap.MetaUnlocking(now))
	require.Equal(t, types.NewAmount(25), snap.MetaToWithdraw(now))

	// after the middle position's 30 days elapse it becomes withdrawable
	later := unlockingStart.Add(31 * 24 * time.Hour)
	require.Equal(t, types.NewAmount(75), snap.MetaToWithdraw(later))
	require.True(t, snap.MetaUnlocking(later).IsZero())
}

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Positions: []types.LockingPosition{{Index: 3, Amount: types.NewAmount(1)}},
		Votes: []types.VoteRecord{
			{PlatformContractID: "platform.near", VotableObjectID: "42", CurrentVotes: types.NewAmount(7)},
		},
	}
	require.NotNil(t, snap.Position(3))
	require.Nil(t, snap.Position(4))
	require.NotNil(t, snap.Vote("platform.near", "42"))
	require.Nil(t, snap.Vote("platform.near", "43"))
	require.Nil(t, snap.Vote("other.near", "42"))
}

func TestStoreReplace(t *testing.T) {
	store := NewStore()
	require.NotNil(t, store.Current())
	require.Zero(t, store.Version())

	first := &Snapshot{Voter: "alice.near"}
	store.Replace(first)
	require.Same(t, first, store.Current())
	require.Equal(t, uint64(1), store.Version())

	second := &Snapshot{Voter: "alice.near"}
	store.Replace(second)
	require.Same(t, second, store.Current())
	require.Equal(t, uint64(2), store.Version())
}

func TestStoreConcurrentReplace(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Replace(&Snapshot{})
				store.Current()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(800), store.Version())
}
