// Package gateway signs and submits state-changing calls to the remote
// ledger and serves its read-only views. The ledger is eventually consistent:
// a committed write is not guaranteed to be visible to an immediately
// following read, so the gateway never mutates local state on success — the
// orchestrator owns reconciliation.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/gateway/metrics"
	"github.com/metapool/go-metavote/vpower"
)

// Config holds the gateway settings.
type Config struct {
	// NodeURL is the ledger's JSON-RPC endpoint.
	NodeURL string `mapstructure:"node-url"`
	// ContractID is the governance (metavote) contract account.
	ContractID string `mapstructure:"contract-id"`
	// TokenID is the governance token contract account; lock deposits go
	// through it.
	TokenID string `mapstructure:"token-id"`

	// MaxRequestRetries bounds transport-level retries per request.
	MaxRequestRetries int `mapstructure:"max-request-retries"`
	// RequestRetryDelay is the minimum wait between transport retries.
	RequestRetryDelay time.Duration `mapstructure:"request-retry-delay"`

	// CallGas is attached to every change call.
	CallGas uint64 `mapstructure:"call-gas"`

	// ParamsTTL bounds how long ledger-side configuration (locking period
	// bounds, minimum deposit, token metadata) and vote totals are served
	// from cache.
	ParamsTTL time.Duration `mapstructure:"params-ttl"`
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequestRetries: 3,
		RequestRetryDelay: 500 * time.Millisecond,
		CallGas:           200_000_000_000_000,
		ParamsTTL:         5 * time.Minute,
	}
}

// FunctionCall is one named state-changing call. Deposit is the token amount
// attached to the call; it is required for lock and zero for everything else.
type FunctionCall struct {
	Receiver types.AccountID
	Method   string
	Args     any
	Deposit  types.Amount
}

// Client talks JSON-RPC to a single ledger node.
type Client struct {
	cfg      Config
	baseURL  *url.URL
	http     *retryablehttp.Client
	signer   Signer
	logger   *zap.Logger
	nonce      atomic.Uint64
	totals     *lru.LRU[string, types.Amount]
	metadata   *lru.LRU[types.AccountID, TokenMetadata]
	bounds     *lru.LRU[types.AccountID, vpower.Bounds]
	minDeposit *lru.LRU[types.AccountID, types.Amount]
}

// Opt modifies a Client.
type Opt func(*Client)

// WithLogger sets the gateway logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
		c.http.Logger = &retryableLogger{inner: logger}
	}
}

// WithSigner attaches the signer used for Submit. A client without a signer
// can only Query.
func WithSigner(signer Signer) Opt {
	return func(c *Client) {
		c.signer = signer
	}
}

func withHTTPClient(client *http.Client) Opt {
	return func(c *Client) {
		c.http.HTTPClient = client
	}
}

// retryableLogger adapts zap to the retryablehttp.LeveledLogger interface.
type retryableLogger struct {
	inner *zap.Logger
}

func (r *retryableLogger) Error(format string, args ...any) { r.inner.Sugar().Errorw(format, args...) }
func (r *retryableLogger) Info(format string, args ...any)  { r.inner.Sugar().Infow(format, args...) }
func (r *retryableLogger) Warn(format string, args ...any)  { r.inner.Sugar().Warnw(format, args...) }
func (r *retryableLogger) Debug(format string, args ...any) { r.inner.Sugar().Debugw(format, args...) }

// NewClient returns a gateway client for the configured node.
func NewClient(cfg Config, opts ...Opt) (*Client, error) {
	baseURL, err := url.Parse(cfg.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("parsing node url: %w", err)
	}
	if baseURL.Scheme == "" {
		baseURL.Scheme = "https"
	}
	c := &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http: &retryablehttp.Client{
			RetryMax:     cfg.MaxRequestRetries,
			RetryWaitMin: cfg.RequestRetryDelay,
			RetryWaitMax: 2 * cfg.RequestRetryDelay,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		},
		logger:     zap.NewNop(),
		totals:     lru.NewLRU[string, types.Amount](512, nil, cfg.ParamsTTL),
		metadata:   lru.NewLRU[types.AccountID, TokenMetadata](16, nil, cfg.ParamsTTL),
		bounds:     lru.NewLRU[types.AccountID, vpower.Bounds](1, nil, cfg.ParamsTTL),
		minDeposit: lru.NewLRU[types.AccountID, types.Amount](1, nil, cfg.ParamsTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.nonce.Store(uint64(time.Now().UnixNano()))
	return c, nil
}

// Contract returns the governance contract account.
func (c *Client) Contract() types.AccountID {
	return types.AccountID(c.cfg.ContractID)
}

// Token returns the governance token contract account.
func (c *Client) Token() types.AccountID {
	return types.AccountID(c.cfg.TokenID)
}

// Query performs a read-only call against the governance contract and
// returns the raw JSON result. No signer interaction takes place.
func (c *Client) Query(ctx context.Context, method string, args any) (json.RawMessage, error) {
	return c.queryContract(ctx, c.Contract(), method, args)
}

func (c *Client) queryContract(
	ctx context.Context,
	contract types.AccountID,
	method string,
	args any,
) (json.RawMessage, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, &QueryError{Method: method, Err: err}
	}
	params := map[string]any{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   contract,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(argsJSON),
	}
	started := time.Now()
	var res struct {
		Result byteArray `json:"result"`
	}
	err = c.rpc(ctx, "query", params, &res)
	metrics.ObserveQuery(method, started, err)
	if err != nil {
		return nil, &QueryError{Method: method, Err: err}
	}
	return json.RawMessage(res.Result), nil
}

// byteArray decodes the ledger's view results, which arrive as a JSON array
// of byte values rather than a base64 string.
type byteArray []byte

func (b *byteArray) UnmarshalJSON(data []byte) error {
	var ints []uint16
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v > 0xff {
			return fmt.Errorf("byte value out of range: %d", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// transactionWire is the envelope the signer authorizes. The ledger assigns
// the position index and other derived state; the client only names the call.
type transactionWire struct {
	SignerID   types.AccountID `json:"signer_id"`
	PublicKey  string          `json:"public_key"`
	Nonce      uint64          `json:"nonce"`
	ReceiverID types.AccountID `json:"receiver_id"`
	Method     string          `json:"method_name"`
	Args       json.RawMessage `json:"args"`
	Gas        uint64          `json:"gas"`
	Deposit    types.Amount    `json:"deposit"`
}

type signedTransactionWire struct {
	Transaction transactionWire `json:"transaction"`
	Signature   string          `json:"signature"`
}

// Submit signs the call and sends it to the ledger, waiting for the commit
// outcome. Failure modes: ErrUserRejected when the signer handshake is
// declined, *RemoteExecutionError when the ledger panics executing the call,
// *TransportError for network faults. On success local state stays untouched;
// reconciliation is the caller's job because the read path may still serve
// pre-commit state.
func (c *Client) Submit(ctx context.Context, call FunctionCall) (*CommitOutcome, error) {
	if c.signer == nil {
		return nil, &TransportError{Op: "submit", Err: fmt.Errorf("no signer configured")}
	}
	argsJSON, err := json.Marshal(call.Args)
	if err != nil {
		return nil, &TransportError{Op: "marshal args", Err: err}
	}
	tx := transactionWire{
		SignerID:   c.signer.AccountID(),
		PublicKey:  c.signer.PublicKey(),
		Nonce:      c.nonce.Add(1),
		ReceiverID: call.Receiver,
		Method:     call.Method,
		Args:       argsJSON,
		Gas:        c.cfg.CallGas,
		Deposit:    call.Deposit,
	}
	payload, err := json.Marshal(&tx)
	if err != nil {
		return nil, &TransportError{Op: "marshal transaction", Err: err}
	}

	signature, err := c.signer.Sign(ctx, payload)
	if err != nil {
		// a declined handshake is not a transport fault
		return nil, fmt.Errorf("signing %s: %w", call.Method, err)
	}
	signed, err := json.Marshal(&signedTransactionWire{
		Transaction: tx,
		Signature:   base64.StdEncoding.EncodeToString(signature),
	})
	if err != nil {
		return nil, &TransportError{Op: "marshal signed transaction", Err: err}
	}

	c.logger.Debug("submitting transaction",
		zap.String("method", call.Method),
		zap.String("receiver", string(call.Receiver)),
		zap.String("deposit", call.Deposit.String()),
	)

	started := time.Now()
	var outcome CommitOutcome
	err = c.rpc(ctx, "broadcast_tx_commit", []string{base64.StdEncoding.EncodeToString(signed)}, &outcome)
	if err != nil {
		metrics.ObserveSubmit(call.Method, started, "transport_error")
		return nil, &TransportError{Op: "broadcast " + call.Method, Err: err}
	}
	if !outcome.Succeeded() {
		msg := outcome.PanicMessage()
		metrics.ObserveSubmit(call.Method, started, "execution_error")
		c.logger.Warn("transaction rejected by ledger",
			zap.String("method", call.Method),
			zap.String("panic", msg),
		)
		return nil, &RemoteExecutionError{Method: call.Method, Message: msg}
	}
	metrics.ObserveSubmit(call.Method, started, "ok")
	return &outcome, nil
}

// rpc performs one JSON-RPC round trip.
func (c *Client) rpc(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      "metavote",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s: %s", res.Status, bytes.TrimSpace(data))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	return nil
}
