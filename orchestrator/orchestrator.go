// Package orchestrator maps user intents to precondition checks, confirmation,
// submission and reconciliation against an eventually-consistent ledger. A
// committed write may not be visible to an immediately following read, so the
// orchestrator never patches local state optimistically: it waits out a settle
// interval, re-fetches the whole account view and swaps it in atomically.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/gateway"
	"github.com/metapool/go-metavote/voter"
	"github.com/metapool/go-metavote/vpower"
)

var (
	// ErrNotConfirmed is returned when the caller declines the confirmation
	// prompt. Nothing was submitted.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrInFlight is returned while another submission is still settling.
	ErrInFlight = errors.New("another action is in flight")
)

// ledger is the subset of the gateway the orchestrator needs.
type ledger interface {
	callBuilder

	Submit(ctx context.Context, call gateway.FunctionCall) (*gateway.CommitOutcome, error)
	AllLockingPositions(ctx context.Context, voter types.VoterID) ([]types.LockingPosition, error)
	AvailableVotingPower(ctx context.Context, voter types.VoterID) (types.Amount, error)
	UsedVotingPower(ctx context.Context, voter types.VoterID) (types.Amount, error)
	LockedBalance(ctx context.Context, voter types.VoterID) (types.Amount, error)
	UnlockingBalance(ctx context.Context, voter types.VoterID) (types.Amount, error)
	Balance(ctx context.Context, voter types.VoterID) (types.Amount, error)
	VotesByVoter(ctx context.Context, voter types.VoterID) ([]types.VoteRecord, error)
	TokenBalance(ctx context.Context, account types.AccountID) (types.Amount, error)
	LockingPeriodBounds(ctx context.Context) (vpower.Bounds, error)
	MinDeposit(ctx context.Context) (types.Amount, error)
}

// Confirmer asks the human to confirm an action before submission.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// AutoConfirm approves every prompt. Useful for scripted use.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, Prompt) (bool, error) { return true, nil }

// Severity grades a notice.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Failure
)

// Notice is a transient user-facing report of an action's outcome.
type Notice struct {
	Severity Severity
	Title    string
	Message  string
}

// Reporter surfaces notices to the user.
type Reporter interface {
	Report(Notice)
}

type logReporter struct {
	logger *zap.Logger
}

func (r logReporter) Report(n Notice) {
	switch n.Severity {
	case Failure:
		r.logger.Error(n.Title, zap.String("detail", n.Message))
	case Warning:
		r.logger.Warn(n.Title, zap.String("detail", n.Message))
	default:
		r.logger.Info(n.Title, zap.String("detail", n.Message))
	}
}

// Config holds the orchestrator settings.
type Config struct {
	// PollInterval is the single background refresh cadence for the whole
	// snapshot. Logically related fields share one staleness window.
	PollInterval time.Duration `mapstructure:"poll-interval"`

	// SettleDelay is the initial wait after a commit before the first
	// reconciliation read; it doubles on every unsettled attempt.
	SettleDelay time.Duration `mapstructure:"settle-delay"`
	// SettleMaxAttempts bounds the reconciliation reads after a commit. The
	// last read is kept even if the write's effect never became visible; the
	// background poll converges eventually.
	SettleMaxAttempts int `mapstructure:"settle-max-attempts"`
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:      30 * time.Second,
		SettleDelay:       time.Second,
		SettleMaxAttempts: 5,
	}
}

// Opt modifies the Orchestrator.
type Opt func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Opt {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithConfirmer sets the confirmation hook.
func WithConfirmer(confirmer Confirmer) Opt {
	return func(o *Orchestrator) {
		o.confirmer = confirmer
	}
}

// WithReporter sets the notice sink.
func WithReporter(reporter Reporter) Opt {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

func withClock(clock clockwork.Clock) Opt {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// Orchestrator drives the full lifecycle of user actions for one voter.
type Orchestrator struct {
	logger    *zap.Logger
	cfg       Config
	ledger    ledger
	store     *voter.Store
	voter     types.VoterID
	confirmer Confirmer
	reporter  Reporter
	clock     clockwork.Clock

	inFlight atomic.Bool
	rules    atomic.Pointer[Rules]
}

// New returns an orchestrator for the given voter backed by the ledger
// gateway and snapshot store.
func New(ledger ledger, store *voter.Store, voterID types.VoterID, opts ...Opt) *Orchestrator {
	o := &Orchestrator{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		ledger:    ledger,
		store:     store,
		voter:     voterID,
		confirmer: AutoConfirm{},
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reporter == nil {
		o.reporter = logReporter{logger: o.logger}
	}
	return o
}

// Rules returns the ledger-side validation parameters. They are fetched on
// every call — the gateway caches them briefly, so operators changing them on
// chain are picked up within the cache TTL. While the ledger is unreachable
// the last fetched values are reused, or compiled defaults before any fetch
// succeeded.
func (o *Orchestrator) Rules(ctx context.Context) Rules {
	rules := Rules{Bounds: vpower.DefaultBounds()}
	if last := o.rules.Load(); last != nil {
		rules = *last
	}
	bounds, err := o.ledger.LockingPeriodBounds(ctx)
	if err != nil {
		o.logger.Debug("reusing previous locking bounds", zap.Error(err))
		return rules
	}
	rules.Bounds = bounds
	if minDeposit, err := o.ledger.MinDeposit(ctx); err != nil {
		o.logger.Debug("reusing previous minimum deposit", zap.Error(err))
	} else {
		rules.MinDeposit = minDeposit
	}
	o.rules.Store(&rules)
	return rules
}

// Do validates, confirms, submits and settles one action. Validation and
// precondition failures block before any signer or network interaction. A
// user-rejected handshake and a remote execution failure both leave the
// snapshot untouched.
func (o *Orchestrator) Do(ctx context.Context, action Action) error {
	snap := o.store.Current()
	now := o.clock.Now()

	if err := action.Validate(snap, o.Rules(ctx), now); err != nil {
		var pre *PreconditionError
		if errors.As(err, &pre) {
			o.reporter.Report(Notice{
				Severity: Warning,
				Title:    "Not enough available voting power",
				Message:  pre.Error(),
			})
		}
		return err
	}

	ok, err := o.confirmer.Confirm(ctx, action.Prompt())
	if err != nil {
		return fmt.Errorf("confirming %s: %w", action, err)
	}
	if !ok {
		return ErrNotConfirmed
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer o.inFlight.Store(false)

	if _, err := o.ledger.Submit(ctx, action.Call(o.ledger)); err != nil {
		switch {
		case errors.Is(err, gateway.ErrUserRejected):
			o.reporter.Report(Notice{Severity: Info, Title: "Transaction cancelled"})
		default:
			var rerr *gateway.RemoteExecutionError
			if errors.As(err, &rerr) {
				o.reporter.Report(Notice{Severity: Failure, Title: "Transaction error", Message: rerr.Message})
			} else {
				o.reporter.Report(Notice{Severity: Failure, Title: "Transaction error", Message: err.Error()})
			}
		}
		return err
	}

	o.settle(ctx, action, snap)
	o.reporter.Report(Notice{Severity: Success, Title: "Transaction success"})
	return nil
}

// settle re-reads the account view until the action's effect is visible or
// the attempt ceiling is reached. Every read replaces the snapshot, so even
// an unsettled exit leaves the freshest available state published.
func (o *Orchestrator) settle(ctx context.Context, action Action, prev *voter.Snapshot) {
	delay := o.cfg.SettleDelay
	for attempt := 1; attempt <= o.cfg.SettleMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(delay):
		}
		next, err := o.Refresh(ctx)
		if err != nil {
			o.logger.Debug("settle refresh failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if action.Settled(prev, next, o.clock.Now()) {
			o.logger.Debug("action settled", zap.Stringer("action", action), zap.Int("attempt", attempt))
			return
		}
		delay *= 2
	}
	o.logger.Debug("action did not visibly settle, keeping last fetch", zap.Stringer("action", action))
}

// Refresh fetches the whole account view and atomically replaces the
// published snapshot. Sub-queries run concurrently but the result is
// assembled and swapped in as one value, so readers never observe fields
// fetched at different times.
func (o *Orchestrator) Refresh(ctx context.Context) (*voter.Snapshot, error) {
	snap := &voter.Snapshot{Voter: o.voter}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		snap.Positions, err = o.ledger.AllLockingPositions(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.VotingPower, err = o.ledger.AvailableVotingPower(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.InUseVPower, err = o.ledger.UsedVotingPower(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.LockedBalance, err = o.ledger.LockedBalance(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.UnlockingBalance, err = o.ledger.UnlockingBalance(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.WithdrawableBalance, err = o.ledger.Balance(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.Votes, err = o.ledger.VotesByVoter(gctx, o.voter)
		return err
	})
	eg.Go(func() (err error) {
		snap.TokenBalance, err = o.ledger.TokenBalance(gctx, types.AccountID(o.voter))
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("refreshing snapshot: %w", err)
	}

	snap.Fetched = o.clock.Now()
	o.store.Replace(snap)
	return snap, nil
}

// Run polls the ledger on the configured interval until ctx is cancelled,
// keeping the snapshot eventually fresh without user action. Transient read
// failures are swallowed; the next tick overwrites them.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := o.clock.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if _, err := o.Refresh(ctx); err != nil {
				o.logger.Debug("background refresh failed", zap.Error(err))
			}
		}
	}
}
