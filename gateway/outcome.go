package gateway

import (
	"encoding/base64"
	"encoding/json"
)

// genericFailure is reported when a commit failed but no panic message could
// be located in the receipt structure.
const genericFailure = "transaction failed"

// executionStatus is the per-outcome status union. Exactly one field is set.
type executionStatus struct {
	SuccessValue     *string         `json:"SuccessValue,omitempty"`
	SuccessReceiptID *string         `json:"SuccessReceiptId,omitempty"`
	Failure          json.RawMessage `json:"Failure,omitempty"`
}

type outcomeWrapper struct {
	ID      string `json:"id"`
	Outcome struct {
		Logs   []string        `json:"logs"`
		Status executionStatus `json:"status"`
	} `json:"outcome"`
}

// CommitOutcome is the structured result of a committed transaction. On
// failure the panic message is buried in one of the nested receipt outcomes.
type CommitOutcome struct {
	Status             executionStatus  `json:"status"`
	TransactionOutcome outcomeWrapper   `json:"transaction_outcome"`
	ReceiptsOutcome    []outcomeWrapper `json:"receipts_outcome"`
}

// Succeeded reports whether the transaction committed without a failure in
// the top-level status or any receipt.
func (o *CommitOutcome) Succeeded() bool {
	if o.Status.Failure != nil {
		return false
	}
	for i := range o.ReceiptsOutcome {
		if o.ReceiptsOutcome[i].Outcome.Status.Failure != nil {
			return false
		}
	}
	return o.TransactionOutcome.Outcome.Status.Failure == nil
}

// ReturnValue decodes the method's return value from the top-level success
// status. It is empty for methods that return nothing.
func (o *CommitOutcome) ReturnValue() ([]byte, error) {
	if o.Status.SuccessValue == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*o.Status.SuccessValue)
}

// PanicMessage extracts the first textual panic embedded in the outcome,
// checking the top-level status, the transaction outcome and then each
// receipt in order. It falls back to a generic message when the failure
// structure carries no recognizable text.
func (o *CommitOutcome) PanicMessage() string {
	candidates := []json.RawMessage{o.Status.Failure, o.TransactionOutcome.Outcome.Status.Failure}
	for i := range o.ReceiptsOutcome {
		candidates = append(candidates, o.ReceiptsOutcome[i].Outcome.Status.Failure)
	}
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		if msg := executionError(raw); msg != "" {
			return msg
		}
	}
	return genericFailure
}

// executionError digs through the failure structure for the first
// "ExecutionError" string. The nesting varies between action and receipt
// failures, so it walks the decoded value generically.
func executionError(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return findExecutionError(v)
}

func findExecutionError(v any) string {
	switch val := v.(type) {
	case map[string]any:
		if msg, ok := val["ExecutionError"].(string); ok {
			return msg
		}
		for _, child := range val {
			if msg := findExecutionError(child); msg != "" {
				return msg
			}
		}
	case []any:
		for _, child := range val {
			if msg := findExecutionError(child); msg != "" {
				return msg
			}
		}
	}
	return ""
}
