package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/vpower"
)

// view method vocabulary of the governance contract.
const (
	methodAllLockingPositions  = "get_all_locking_positions"
	methodAvailableVotingPower = "get_available_voting_power"
	methodUsedVotingPower      = "get_used_voting_power"
	methodLockedBalance        = "get_locked_balance"
	methodUnlockingBalance     = "get_unlocking_balance"
	methodBalance              = "get_balance"
	methodVotesByVoter         = "get_voting_results"
	methodTotalVotes           = "get_total_votes"
	methodLockingPeriod        = "get_locking_period"
	methodContractInfo         = "get_contract_info"
	methodTokenMetadata        = "ft_metadata"
	methodTokenBalance         = "ft_balance_of"
)

type voterArgs struct {
	VoterID types.VoterID `json:"voter_id"`
}

func (c *Client) queryInto(ctx context.Context, method string, args, out any) error {
	raw, err := c.Query(ctx, method, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &QueryError{Method: method, Err: fmt.Errorf("decoding view result: %w", err)}
	}
	return nil
}

// AllLockingPositions returns every locking position of the voter.
func (c *Client) AllLockingPositions(ctx context.Context, voter types.VoterID) ([]types.LockingPosition, error) {
	var positions []types.LockingPosition
	if err := c.queryInto(ctx, methodAllLockingPositions, voterArgs{voter}, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) amountView(ctx context.Context, method string, voter types.VoterID) (types.Amount, error) {
	var amount types.Amount
	if err := c.queryInto(ctx, method, voterArgs{voter}, &amount); err != nil {
		return types.Amount{}, err
	}
	return amount, nil
}

// AvailableVotingPower returns the power the voter can still allocate.
func (c *Client) AvailableVotingPower(ctx context.Context, voter types.VoterID) (types.Amount, error) {
	return c.amountView(ctx, methodAvailableVotingPower, voter)
}

// UsedVotingPower returns the power the voter has committed to votes.
func (c *Client) UsedVotingPower(ctx context.Context, voter types.VoterID) (types.Amount, error) {
	return c.amountView(ctx, methodUsedVotingPower, voter)
}

// LockedBalance returns the voter's total deposit still locked.
func (c *Client) LockedBalance(ctx context.Context, voter types.VoterID) (types.Amount, error) {
	return c.amountView(ctx, methodLockedBalance, voter)
}

// UnlockingBalance returns the voter's total deposit counting down release.
func (c *Client) UnlockingBalance(ctx context.Context, voter types.VoterID) (types.Amount, error) {
	return c.amountView(ctx, methodUnlockingBalance, voter)
}

// Balance returns the voter's withdrawable total.
func (c *Client) Balance(ctx context.Context, voter types.VoterID) (types.Amount, error) {
	return c.amountView(ctx, methodBalance, voter)
}

// VotesByVoter returns the voter's current vote allocations.
func (c *Client) VotesByVoter(ctx context.Context, voter types.VoterID) ([]types.VoteRecord, error) {
	var votes []types.VoteRecord
	if err := c.queryInto(ctx, methodVotesByVoter, voterArgs{voter}, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// TotalVotes returns the power committed by all voters to the given object.
// Results are cached briefly; totals move slowly and the view is hit once per
// listed object on every render.
func (c *Client) TotalVotes(
	ctx context.Context,
	platform types.AccountID,
	object types.VotableObjectID,
) (types.Amount, error) {
	key := string(platform) + "/" + string(object)
	if total, ok := c.totals.Get(key); ok {
		return total, nil
	}
	var total types.Amount
	args := struct {
		ContractAddress types.AccountID       `json:"contract_address"`
		VotableObjectID types.VotableObjectID `json:"votable_object_id"`
	}{platform, object}
	if err := c.queryInto(ctx, methodTotalVotes, args, &total); err != nil {
		return types.Amount{}, err
	}
	c.totals.Add(key, total)
	return total, nil
}

// LockingPeriodBounds fetches the ledger-configured locking period range,
// cached with ParamsTTL. The ledger is the authority on these bounds;
// compiled defaults exist only for offline previews.
func (c *Client) LockingPeriodBounds(ctx context.Context) (vpower.Bounds, error) {
	if bounds, ok := c.bounds.Get(c.Contract()); ok {
		return bounds, nil
	}
	var pair [2]uint16
	if err := c.queryInto(ctx, methodLockingPeriod, struct{}{}, &pair); err != nil {
		return vpower.Bounds{}, err
	}
	bounds := vpower.Bounds{MinLockDays: pair[0], MaxLockDays: pair[1]}
	if err := bounds.Validate(); err != nil {
		return vpower.Bounds{}, &QueryError{Method: methodLockingPeriod, Err: err}
	}
	c.bounds.Add(c.Contract(), bounds)
	return bounds, nil
}

// MinDeposit fetches the smallest deposit the ledger accepts when opening or
// shrinking a locking position, cached with ParamsTTL. It is dug out of the
// contract info view.
func (c *Client) MinDeposit(ctx context.Context) (types.Amount, error) {
	if amount, ok := c.minDeposit.Get(c.Contract()); ok {
		return amount, nil
	}
	var info struct {
		MinDepositAmount types.Amount `json:"min_deposit_amount"`
	}
	if err := c.queryInto(ctx, methodContractInfo, struct{}{}, &info); err != nil {
		return types.Amount{}, err
	}
	c.minDeposit.Add(c.Contract(), info.MinDepositAmount)
	return info.MinDepositAmount, nil
}

// TokenBalance returns the account's spendable governance token balance,
// served by the token contract rather than the governance contract.
func (c *Client) TokenBalance(ctx context.Context, account types.AccountID) (types.Amount, error) {
	args := struct {
		AccountID types.AccountID `json:"account_id"`
	}{account}
	raw, err := c.queryContract(ctx, c.Token(), methodTokenBalance, args)
	if err != nil {
		return types.Amount{}, err
	}
	var balance types.Amount
	if err := json.Unmarshal(raw, &balance); err != nil {
		return types.Amount{}, &QueryError{Method: methodTokenBalance, Err: err}
	}
	return balance, nil
}

// TokenMetadata describes the governance token.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Metadata returns the governance token metadata, cached.
func (c *Client) Metadata(ctx context.Context) (TokenMetadata, error) {
	if md, ok := c.metadata.Get(c.Token()); ok {
		return md, nil
	}
	raw, err := c.queryContract(ctx, c.Token(), methodTokenMetadata, struct{}{})
	if err != nil {
		return TokenMetadata{}, err
	}
	var md TokenMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return TokenMetadata{}, &QueryError{Method: methodTokenMetadata, Err: err}
	}
	c.metadata.Add(c.Token(), md)
	return md, nil
}
