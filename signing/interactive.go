package signing

import (
	"context"
	"fmt"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/gateway"
)

// Approver decides whether a pending signature may be produced. It models
// the human side of the wallet handshake and may block indefinitely; a false
// answer means the human declined.
type Approver interface {
	Approve(ctx context.Context, account types.AccountID, payload []byte) (bool, error)
}

// Interactive wraps a signer so that every signature requires approval.
// A declined handshake surfaces as gateway.ErrUserRejected.
type Interactive struct {
	inner    gateway.Signer
	approver Approver
}

// NewInteractive returns a signer gated by the approver.
func NewInteractive(inner gateway.Signer, approver Approver) *Interactive {
	return &Interactive{inner: inner, approver: approver}
}

func (s *Interactive) AccountID() types.AccountID { return s.inner.AccountID() }
func (s *Interactive) PublicKey() string          { return s.inner.PublicKey() }

// Sign asks for approval before producing the signature.
func (s *Interactive) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	ok, err := s.approver.Approve(ctx, s.inner.AccountID(), payload)
	if err != nil {
		return nil, fmt.Errorf("signing approval: %w", err)
	}
	if !ok {
		return nil, gateway.ErrUserRejected
	}
	return s.inner.Sign(ctx, payload)
}
