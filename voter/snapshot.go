// Package voter holds the authoritative client-side view of one account's
// locking positions, balances and votes. The view is rebuilt wholesale on
// every refresh and swapped atomically; no code path patches a published
// snapshot field by field, which is what keeps concurrent refresh triggers
// (user actions, background polling) from exposing torn state.
package voter

import (
	"sync/atomic"
	"time"

	"github.com/metapool/go-metavote/common/types"
)

// Snapshot is one account's full view as fetched from the ledger. A snapshot
// is immutable once published to a Store.
type Snapshot struct {
	Voter types.VoterID

	// VotingPower is the power currently available to allocate.
	VotingPower types.Amount
	// InUseVPower is the power currently committed to votes.
	InUseVPower types.Amount

	Positions []types.LockingPosition
	Votes     []types.VoteRecord

	// Ledger-reported aggregates. These may briefly disagree with the
	// position-derived aggregates below while a write settles.
	LockedBalance       types.Amount
	UnlockingBalance    types.Amount
	WithdrawableBalance types.Amount

	// TokenBalance is the spendable wallet balance of the governance token,
	// the ceiling for new lock deposits.
	TokenBalance types.Amount

	// Fetched is the local time the snapshot was assembled.
	Fetched time.Time
}

// MetaLocked is the total deposited amount across positions locked at now.
func (s *Snapshot) MetaLocked(now time.Time) types.Amount {
	return s.sumByStatus(types.Locked, now)
}

// MetaUnlocking is the total deposited amount across positions counting down
// their release at now.
func (s *Snapshot) MetaUnlocking(now time.Time) types.Amount {
	return s.sumByStatus(types.Unlocking, now)
}

// MetaToWithdraw is the total deposited amount across fully released
// positions at now.
func (s *Snapshot) MetaToWithdraw(now time.Time) types.Amount {
	return s.sumByStatus(types.Unlocked, now)
}

func (s *Snapshot) sumByStatus(status types.PositionStatus, now time.Time) types.Amount {
	var sum types.Amount
	for i := range s.Positions {
		if s.Positions[i].Status(now) == status {
			sum = sum.Add(s.Positions[i].Amount)
		}
	}
	return sum
}

// Position returns the position with the given index, or nil.
func (s *Snapshot) Position(index uint64) *types.LockingPosition {
	for i := range s.Positions {
		if s.Positions[i].Index == index {
			return &s.Positions[i]
		}
	}
	return nil
}

// Vote returns this account's vote on the given object, or nil.
func (s *Snapshot) Vote(platform types.AccountID, object types.VotableObjectID) *types.VoteRecord {
	for i := range s.Votes {
		if s.Votes[i].PlatformContractID == platform && s.Votes[i].VotableObjectID == object {
			return &s.Votes[i]
		}
	}
	return nil
}

type versioned struct {
	snap    *Snapshot
	version uint64
}

// Store publishes snapshots. Replace is the only mutation; whichever of two
// concurrent refreshes completes last wins.
type Store struct {
	cur atomic.Pointer[versioned]
}

// NewStore returns a store holding an empty snapshot at version zero.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&versioned{snap: &Snapshot{}})
	return s
}

// Current returns the most recently published snapshot. Callers must not
// mutate it.
func (s *Store) Current() *Snapshot {
	return s.cur.Load().snap
}

// Version returns the number of replacements so far. It increases with every
// Replace, letting settle-probes detect that a fresh snapshot landed.
func (s *Store) Version() uint64 {
	return s.cur.Load().version
}

// Replace atomically swaps in a new snapshot.
func (s *Store) Replace(snap *Snapshot) {
	for {
		old := s.cur.Load()
		next := &versioned{snap: snap, version: old.version + 1}
		if s.cur.CompareAndSwap(old, next) {
			return
		}
	}
}
