package gateway

import (
	"strconv"

	"github.com/metapool/go-metavote/common/types"
)

// change method vocabulary. Lock goes through the token contract as a
// transfer-and-call deposit; everything else targets the governance contract
// directly.
const (
	methodTransferCall  = "ft_transfer_call"
	methodUnlock        = "unlock_position"
	methodUnlockPartial = "unlock_partial_position"
	methodRelock        = "relock_position"
	methodRelockBalance = "relock_from_balance"
	methodWithdraw      = "withdraw"
	methodWithdrawAll   = "withdraw_all"
	methodVote          = "vote"
	methodUnvote        = "unvote"
)

// LockCall deposits amount into a new locking position for the given period.
// The day count rides in the transfer message; the governance contract parses
// it when the token contract forwards the deposit.
func (c *Client) LockCall(amount types.Amount, days uint16) FunctionCall {
	return FunctionCall{
		Receiver: c.Token(),
		Method:   methodTransferCall,
		Args: struct {
			ReceiverID types.AccountID `json:"receiver_id"`
			Amount     types.Amount    `json:"amount"`
			Msg        string          `json:"msg"`
		}{c.Contract(), amount, strconv.Itoa(int(days))},
		Deposit: amount,
	}
}

// UnlockCall starts the release countdown on a position.
func (c *Client) UnlockCall(index uint64) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodUnlock,
		Args: struct {
			Index uint64 `json:"index"`
		}{index},
	}
}

// UnlockPartialCall starts releasing only part of a position's deposit.
func (c *Client) UnlockPartialCall(index uint64, amount types.Amount) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodUnlockPartial,
		Args: struct {
			Index  uint64       `json:"index"`
			Amount types.Amount `json:"amount"`
		}{index, amount},
	}
}

// RelockCall cancels a pending release and recommits the position for a new
// period, optionally topping it up from the withdrawable balance.
func (c *Client) RelockCall(index uint64, days uint16, amountFromBalance types.Amount) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodRelock,
		Args: struct {
			Index             uint64       `json:"index"`
			LockingPeriod     uint16       `json:"locking_period"`
			AmountFromBalance types.Amount `json:"amount_from_balance"`
		}{index, days, amountFromBalance},
	}
}

// RelockFromBalanceCall opens a fresh position funded from the withdrawable
// balance instead of a new deposit.
func (c *Client) RelockFromBalanceCall(days uint16, amount types.Amount) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodRelockBalance,
		Args: struct {
			LockingPeriod uint16       `json:"locking_period"`
			Amount        types.Amount `json:"amount_from_balance"`
		}{days, amount},
	}
}

// WithdrawCall removes the named fully released positions and returns their
// tokens, together with any free balance.
func (c *Client) WithdrawCall(indices []uint64, amountFromBalance types.Amount) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodWithdraw,
		Args: struct {
			PositionIndexList []uint64     `json:"position_index_list"`
			AmountFromBalance types.Amount `json:"amount_from_balance"`
		}{indices, amountFromBalance},
	}
}

// WithdrawAllCall removes every fully released position of the caller.
func (c *Client) WithdrawAllCall() FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodWithdrawAll,
		Args:     struct{}{},
	}
}

// VoteCall commits voting power to a votable object.
func (c *Client) VoteCall(power types.Amount, platform types.AccountID, object types.VotableObjectID) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodVote,
		Args: struct {
			VotingPower     types.Amount          `json:"voting_power"`
			ContractAddress types.AccountID       `json:"contract_address"`
			VotableObjectID types.VotableObjectID `json:"votable_object_id"`
		}{power, platform, object},
	}
}

// UnvoteCall withdraws the caller's entire vote from a votable object.
func (c *Client) UnvoteCall(platform types.AccountID, object types.VotableObjectID) FunctionCall {
	return FunctionCall{
		Receiver: c.Contract(),
		Method:   methodUnvote,
		Args: struct {
			ContractAddress types.AccountID       `json:"contract_address"`
			VotableObjectID types.VotableObjectID `json:"votable_object_id"`
		}{platform, object},
	}
}
