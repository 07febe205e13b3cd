// Package types defines the domain model shared by the metavote client
// packages: token amounts, locking positions and vote records as the remote
// ledger reports them, plus the lifecycle classification derived from them.
package types

import (
	"encoding/json"
	"errors"
	"time"
)

// VoterID identifies an account on the remote ledger.
type VoterID string

// AccountID identifies any contract or account on the remote ledger.
type AccountID string

// VotableObjectID names an object hosted by an external voting platform.
type VotableObjectID string

// PositionStatus is the lifecycle phase of a locking position.
type PositionStatus int

const (
	// Locked positions hold voting power and have no release scheduled.
	Locked PositionStatus = iota
	// Unlocking positions are counting down their release period.
	Unlocking
	// Unlocked positions are fully released and pending withdrawal.
	Unlocked
)

func (s PositionStatus) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

var (
	// ErrNotUnlocking is returned by RemainingUnlockTime for a position whose
	// release countdown has not started.
	ErrNotUnlocking = errors.New("unlocking not started")
	// ErrFullyReleased is returned by RemainingUnlockTime for a position whose
	// release countdown has already finished.
	ErrFullyReleased = errors.New("position fully released")
)

// LockingPosition is one deposit committed for a fixed period in exchange for
// voting power. All fields are authoritative ledger state: in particular
// VotingPower is whatever the ledger computed at creation time and is never
// recomputed client-side.
type LockingPosition struct {
	Index             uint64
	Amount            Amount
	LockingPeriodDays uint16
	VotingPower       Amount
	// UnlockingStartedAt is nil while the position is locked.
	UnlockingStartedAt *time.Time
}

// LockingPeriod returns the lock period as a duration.
func (p *LockingPosition) LockingPeriod() time.Duration {
	return time.Duration(p.LockingPeriodDays) * 24 * time.Hour
}

// Status classifies the position at the given instant. The transition from
// Unlocking to Unlocked is purely time-derived; the ledger stores no extra
// state for it.
func (p *LockingPosition) Status(now time.Time) PositionStatus {
	if p.UnlockingStartedAt == nil {
		return Locked
	}
	if now.Before(p.UnlockingStartedAt.Add(p.LockingPeriod())) {
		return Unlocking
	}
	return Unlocked
}

// RemainingUnlockTime returns the time left until the position is fully
// released. It is only defined while the position is Unlocking; otherwise it
// returns zero with ErrNotUnlocking or ErrFullyReleased.
func (p *LockingPosition) RemainingUnlockTime(now time.Time) (time.Duration, error) {
	switch p.Status(now) {
	case Locked:
		return 0, ErrNotUnlocking
	case Unlocked:
		return 0, ErrFullyReleased
	}
	remaining := p.UnlockingStartedAt.Add(p.LockingPeriod()).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// positionWire is the ledger's JSON shape for a position. Timestamps are
// epoch milliseconds, amounts decimal strings.
type positionWire struct {
	Index              uint64 `json:"index"`
	Amount             Amount `json:"amount"`
	LockingPeriod      uint16 `json:"locking_period"`
	VotingPower        Amount `json:"voting_power"`
	UnlockingStartedAt *int64 `json:"unlocking_started_at"`
}

// MarshalJSON encodes the position in the ledger's wire shape.
func (p LockingPosition) MarshalJSON() ([]byte, error) {
	w := positionWire{
		Index:         p.Index,
		Amount:        p.Amount,
		LockingPeriod: p.LockingPeriodDays,
		VotingPower:   p.VotingPower,
	}
	if p.UnlockingStartedAt != nil {
		ms := p.UnlockingStartedAt.UnixMilli()
		w.UnlockingStartedAt = &ms
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the ledger's wire shape.
func (p *LockingPosition) UnmarshalJSON(data []byte) error {
	var w positionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Index = w.Index
	p.Amount = w.Amount
	p.LockingPeriodDays = w.LockingPeriod
	p.VotingPower = w.VotingPower
	p.UnlockingStartedAt = nil
	if w.UnlockingStartedAt != nil {
		t := time.UnixMilli(*w.UnlockingStartedAt).UTC()
		p.UnlockingStartedAt = &t
	}
	return nil
}
