package gateway

import (
	"fmt"
)

// TransportError wraps network and RPC-protocol level failures. Submissions
// surface it to the user; background reads swallow it and wait for the next
// poll tick.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteExecutionError means the ledger accepted the transaction but its
// execution panicked. Message is the panic text dug out of the commit
// receipt; local state is presumed unchanged.
type RemoteExecutionError struct {
	Method  string
	Message string
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote execution of %s failed: %s", e.Method, e.Message)
}

// QueryError wraps a failed read-only call.
type QueryError struct {
	Method string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Method, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// rpcError is the JSON-RPC error object returned by the node.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
