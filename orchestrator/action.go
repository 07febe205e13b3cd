package orchestrator

import (
	"fmt"
	"time"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/gateway"
	"github.com/metapool/go-metavote/voter"
	"github.com/metapool/go-metavote/vpower"
)

// ValidationError is a client-side rejection of action input: bad amounts or
// periods. The action is never submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PreconditionError is a client-side rejection on domain state: the action
// cannot succeed against the current snapshot. It carries the shortfall so
// the caller can show requested vs. available.
type PreconditionError struct {
	Reason    string
	Requested types.Amount
	Available types.Amount
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: requested %s, available %s", e.Reason, e.Requested, e.Available)
}

// Rules are the ledger-side parameters client-side validation enforces:
// the accepted locking period range and the smallest deposit a locking
// position may hold. A zero MinDeposit disables the deposit floor.
type Rules struct {
	Bounds     vpower.Bounds
	MinDeposit types.Amount
}

// Prompt is the confirmation text shown before submission.
type Prompt struct {
	Title string
	Text  string
}

// callBuilder constructs the wire call for each action; *gateway.Client
// implements it.
type callBuilder interface {
	LockCall(amount types.Amount, days uint16) gateway.FunctionCall
	UnlockCall(index uint64) gateway.FunctionCall
	UnlockPartialCall(index uint64, amount types.Amount) gateway.FunctionCall
	RelockCall(index uint64, days uint16, amountFromBalance types.Amount) gateway.FunctionCall
	RelockFromBalanceCall(days uint16, amount types.Amount) gateway.FunctionCall
	WithdrawCall(indices []uint64, amountFromBalance types.Amount) gateway.FunctionCall
	WithdrawAllCall() gateway.FunctionCall
	VoteCall(power types.Amount, platform types.AccountID, object types.VotableObjectID) gateway.FunctionCall
	UnvoteCall(platform types.AccountID, object types.VotableObjectID) gateway.FunctionCall
}

// Action is one user-initiated intent, carrying its own precondition check,
// confirmation prompt, wire call and settlement probe.
type Action interface {
	fmt.Stringer

	// Validate checks the action against the current snapshot and the
	// ledger rules. It returns *ValidationError or *PreconditionError;
	// either blocks submission.
	Validate(snap *voter.Snapshot, rules Rules, now time.Time) error
	// Prompt is the fixed confirmation text for this action type.
	Prompt() Prompt
	// Call builds the wire call.
	Call(b callBuilder) gateway.FunctionCall
	// Settled reports whether the effect of the action is visible when
	// comparing the pre-submission snapshot with a later fetch.
	Settled(prev, next *voter.Snapshot, now time.Time) bool
}

// prompts is the static confirmation table keyed by action type.
var prompts = map[string]Prompt{
	"lock": {
		Title: "Lock tokens",
		Text:  "Are you sure you want to lock these tokens? They can only be released by waiting out the full locking period.",
	},
	"unlock": {
		Title: "Start unlocking",
		Text:  "Are you sure you want to start unlocking this position? Your tokens will be released when the locking period ends.",
	},
	"relock": {
		Title: "Confirmation",
		Text:  "Are you sure you want to relock your position?",
	},
	"withdraw": {
		Title: "Confirmation",
		Text:  "Are you sure you want to withdraw your position?",
	},
	"vote": {
		Title: "Confirmation",
		Text:  "Are you sure you want to commit voting power to this project?",
	},
	"unvote": {
		Title: "Confirmation",
		Text:  "Are you sure you want to remove your vote position?",
	},
}

// Lock deposits tokens into a new locking position.
type Lock struct {
	Amount types.Amount
	Days   uint16
}

func (a Lock) String() string { return "lock" }
func (a Lock) Prompt() Prompt { return prompts["lock"] }

func (a Lock) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if a.Amount.IsZero() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if a.Amount.Cmp(rules.MinDeposit) < 0 {
		return &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("below the ledger minimum deposit of %s", rules.MinDeposit),
		}
	}
	if !rules.Bounds.Contains(a.Days) {
		return &ValidationError{
			Field:  "locking period",
			Reason: fmt.Sprintf("%d days outside [%d, %d]", a.Days, rules.Bounds.MinLockDays, rules.Bounds.MaxLockDays),
		}
	}
	if a.Amount.Cmp(snap.TokenBalance) > 0 {
		return &ValidationError{Field: "amount", Reason: "exceeds spendable token balance"}
	}
	return nil
}

func (a Lock) Call(b callBuilder) gateway.FunctionCall {
	return b.LockCall(a.Amount, a.Days)
}

func (a Lock) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return next.MetaLocked(now).Cmp(prev.MetaLocked(now)) > 0 || len(next.Positions) > len(prev.Positions)
}

// Unlock starts the release countdown of a locked position.
type Unlock struct {
	Index uint64
}

func (a Unlock) String() string { return "unlock" }
func (a Unlock) Prompt() Prompt { return prompts["unlock"] }

func (a Unlock) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	pos := snap.Position(a.Index)
	if pos == nil {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("no position with index %d", a.Index)}
	}
	if status := pos.Status(now); status != types.Locked {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("position is %s, not locked", status)}
	}
	// The position's power must be free. If part of it is committed to votes
	// the ledger would reject the unlock anyway; fail fast with the shortfall.
	if pos.VotingPower.Cmp(snap.VotingPower) > 0 {
		return &PreconditionError{
			Reason:    "not enough available voting power to unlock this position",
			Requested: pos.VotingPower,
			Available: snap.VotingPower,
		}
	}
	return nil
}

func (a Unlock) Call(b callBuilder) gateway.FunctionCall {
	return b.UnlockCall(a.Index)
}

func (a Unlock) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	pos := next.Position(a.Index)
	return pos != nil && pos.UnlockingStartedAt != nil
}

// UnlockPartial starts releasing part of a locked position's deposit.
type UnlockPartial struct {
	Index  uint64
	Amount types.Amount
}

func (a UnlockPartial) String() string { return "unlock" }
func (a UnlockPartial) Prompt() Prompt { return prompts["unlock"] }

func (a UnlockPartial) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	pos := snap.Position(a.Index)
	if pos == nil {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("no position with index %d", a.Index)}
	}
	if status := pos.Status(now); status != types.Locked {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("position is %s, not locked", status)}
	}
	if a.Amount.IsZero() || a.Amount.Cmp(pos.Amount) > 0 {
		return &ValidationError{Field: "amount", Reason: "must be within the position's deposit"}
	}
	// unlocking the full amount degrades to a whole-position unlock on the
	// ledger; anything less must leave at least the minimum deposit behind
	if a.Amount.Cmp(pos.Amount) < 0 && pos.Amount.Sub(a.Amount).Cmp(rules.MinDeposit) < 0 {
		return &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("would leave the position below the ledger minimum deposit of %s", rules.MinDeposit),
		}
	}
	// proportional share of the position's power must be free; checking the
	// full position power is the conservative client-side bound
	if pos.VotingPower.Cmp(snap.VotingPower) > 0 {
		return &PreconditionError{
			Reason:    "not enough available voting power to unlock this position",
			Requested: pos.VotingPower,
			Available: snap.VotingPower,
		}
	}
	return nil
}

func (a UnlockPartial) Call(b callBuilder) gateway.FunctionCall {
	return b.UnlockPartialCall(a.Index, a.Amount)
}

func (a UnlockPartial) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return next.MetaUnlocking(now).Cmp(prev.MetaUnlocking(now)) > 0
}

// Relock cancels a pending release and recommits the position.
type Relock struct {
	Index             uint64
	Days              uint16
	AmountFromBalance types.Amount
}

func (a Relock) String() string { return "relock" }
func (a Relock) Prompt() Prompt { return prompts["relock"] }

func (a Relock) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	pos := snap.Position(a.Index)
	if pos == nil {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("no position with index %d", a.Index)}
	}
	if status := pos.Status(now); status != types.Unlocking {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("position is %s, not unlocking", status)}
	}
	if !rules.Bounds.Contains(a.Days) {
		return &ValidationError{
			Field:  "locking period",
			Reason: fmt.Sprintf("%d days outside [%d, %d]", a.Days, rules.Bounds.MinLockDays, rules.Bounds.MaxLockDays),
		}
	}
	if a.AmountFromBalance.Cmp(snap.WithdrawableBalance) > 0 {
		return &ValidationError{Field: "amount", Reason: "exceeds withdrawable balance"}
	}
	return nil
}

func (a Relock) Call(b callBuilder) gateway.FunctionCall {
	return b.RelockCall(a.Index, a.Days, a.AmountFromBalance)
}

func (a Relock) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	pos := next.Position(a.Index)
	return pos != nil && pos.UnlockingStartedAt == nil
}

// RelockFromBalance opens a fresh locking position funded entirely from the
// withdrawable balance, without touching any existing position.
type RelockFromBalance struct {
	Amount types.Amount
	Days   uint16
}

func (a RelockFromBalance) String() string { return "relock" }
func (a RelockFromBalance) Prompt() Prompt { return prompts["relock"] }

func (a RelockFromBalance) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if a.Amount.IsZero() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if a.Amount.Cmp(rules.MinDeposit) < 0 {
		return &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("below the ledger minimum deposit of %s", rules.MinDeposit),
		}
	}
	if !rules.Bounds.Contains(a.Days) {
		return &ValidationError{
			Field:  "locking period",
			Reason: fmt.Sprintf("%d days outside [%d, %d]", a.Days, rules.Bounds.MinLockDays, rules.Bounds.MaxLockDays),
		}
	}
	if a.Amount.Cmp(snap.WithdrawableBalance) > 0 {
		return &ValidationError{Field: "amount", Reason: "exceeds withdrawable balance"}
	}
	return nil
}

func (a RelockFromBalance) Call(b callBuilder) gateway.FunctionCall {
	return b.RelockFromBalanceCall(a.Days, a.Amount)
}

func (a RelockFromBalance) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return len(next.Positions) > len(prev.Positions)
}

// Withdraw removes fully released positions and returns their tokens.
type Withdraw struct {
	Indices           []uint64
	AmountFromBalance types.Amount
}

func (a Withdraw) String() string { return "withdraw" }
func (a Withdraw) Prompt() Prompt { return prompts["withdraw"] }

func (a Withdraw) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if len(a.Indices) == 0 && a.AmountFromBalance.IsZero() {
		return &ValidationError{Field: "positions", Reason: "nothing to withdraw"}
	}
	for _, index := range a.Indices {
		pos := snap.Position(index)
		if pos == nil {
			return &ValidationError{Field: "position", Reason: fmt.Sprintf("no position with index %d", index)}
		}
		if status := pos.Status(now); status != types.Unlocked {
			return &ValidationError{Field: "position", Reason: fmt.Sprintf("position %d is %s, not fully released", index, status)}
		}
	}
	return nil
}

func (a Withdraw) Call(b callBuilder) gateway.FunctionCall {
	return b.WithdrawCall(a.Indices, a.AmountFromBalance)
}

func (a Withdraw) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	for _, index := range a.Indices {
		if next.Position(index) != nil {
			return false
		}
	}
	return true
}

// WithdrawAll removes every fully released position.
type WithdrawAll struct{}

func (a WithdrawAll) String() string { return "withdraw" }
func (a WithdrawAll) Prompt() Prompt { return prompts["withdraw"] }

func (a WithdrawAll) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if snap.MetaToWithdraw(now).IsZero() {
		return &ValidationError{Field: "positions", Reason: "no fully released positions"}
	}
	return nil
}

func (a WithdrawAll) Call(b callBuilder) gateway.FunctionCall {
	return b.WithdrawAllCall()
}

func (a WithdrawAll) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return next.MetaToWithdraw(now).IsZero()
}

// Vote commits voting power to a votable object.
type Vote struct {
	VotingPower types.Amount
	Platform    types.AccountID
	ObjectID    types.VotableObjectID
}

func (a Vote) String() string { return "vote" }
func (a Vote) Prompt() Prompt { return prompts["vote"] }

func (a Vote) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if a.VotingPower.IsZero() {
		return &ValidationError{Field: "voting power", Reason: "must be greater than zero"}
	}
	if a.VotingPower.Cmp(snap.VotingPower) > 0 {
		return &PreconditionError{
			Reason:    "not enough available voting power",
			Requested: a.VotingPower,
			Available: snap.VotingPower,
		}
	}
	return nil
}

func (a Vote) Call(b callBuilder) gateway.FunctionCall {
	return b.VoteCall(a.VotingPower, a.Platform, a.ObjectID)
}

func (a Vote) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return next.InUseVPower.Cmp(prev.InUseVPower) > 0
}

// Unvote withdraws the account's entire vote from a votable object.
type Unvote struct {
	Platform types.AccountID
	ObjectID types.VotableObjectID
}

func (a Unvote) String() string { return "unvote" }
func (a Unvote) Prompt() Prompt { return prompts["unvote"] }

func (a Unvote) Validate(snap *voter.Snapshot, rules Rules, now time.Time) error {
	if snap.Vote(a.Platform, a.ObjectID) == nil {
		return &ValidationError{Field: "vote", Reason: "no vote on this object"}
	}
	return nil
}

func (a Unvote) Call(b callBuilder) gateway.FunctionCall {
	return b.UnvoteCall(a.Platform, a.ObjectID)
}

func (a Unvote) Settled(prev, next *voter.Snapshot, now time.Time) bool {
	return next.Vote(a.Platform, a.ObjectID) == nil
}
