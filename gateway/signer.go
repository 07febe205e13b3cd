package gateway

import (
	"context"
	"errors"

	"github.com/metapool/go-metavote/common/types"
)

// ErrUserRejected is returned when the human declines the signing handshake.
// The submission was never sent; callers must not schedule a refresh.
var ErrUserRejected = errors.New("signing rejected by user")

// Signer produces signatures over serialized transactions. Implementations
// may block indefinitely waiting for human approval; they report a declined
// handshake by returning an error wrapping ErrUserRejected.
type Signer interface {
	// AccountID is the ledger account the signature authorizes.
	AccountID() types.AccountID
	// PublicKey is the verifying key, in the ledger's text encoding.
	PublicKey() string
	// Sign returns the signature over payload.
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}
