package signing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/stretchr/testify/require"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/gateway"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewEdSigner()
	require.NoError(t, err)

	payload := []byte("transaction payload")
	sig, err := signer.Sign(context.Background(), payload)
	require.NoError(t, err)

	pub := signer.priv.Public().(ed25519.PublicKey)
	require.True(t, Verify(pub, payload, sig))
	require.False(t, Verify(pub, []byte("tampered"), sig))
}

func TestImplicitAccountID(t *testing.T) {
	signer, err := NewEdSigner()
	require.NoError(t, err)

	pub := signer.priv.Public().(ed25519.PublicKey)
	require.Equal(t, types.AccountID(hex.EncodeToString(pub)), signer.AccountID())

	t.Run("explicit account wins", func(t *testing.T) {
		signer, err := NewEdSigner(WithAccountID("alice.near"))
		require.NoError(t, err)
		require.Equal(t, types.AccountID("alice.near"), signer.AccountID())
	})
}

func TestKeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voter.key")

	created, err := NewEdSigner(ToFile(path))
	require.NoError(t, err)

	loaded, err := NewEdSigner(FromFile(path))
	require.NoError(t, err)
	require.Equal(t, created.AccountID(), loaded.AccountID())
	require.Equal(t, "voter.key", loaded.Name())

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := NewEdSigner(ToFile(path))
		require.ErrorIs(t, err, os.ErrExist)
	})

	t.Run("rejects truncated key", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.key")
		require.NoError(t, os.WriteFile(bad, []byte("abcd"), 0o600))
		_, err := NewEdSigner(FromFile(bad))
		require.Error(t, err)
	})
}

func TestWithKeyFromRand(t *testing.T) {
	a, err := NewEdSigner(WithKeyFromRand(rand.Reader))
	require.NoError(t, err)
	b, err := NewEdSigner(WithKeyFromRand(rand.Reader))
	require.NoError(t, err)
	require.NotEqual(t, a.AccountID(), b.AccountID())
}

type fixedApprover struct {
	answer bool
}

func (f fixedApprover) Approve(context.Context, types.AccountID, []byte) (bool, error) {
	return f.answer, nil
}

func TestInteractiveSigner(t *testing.T) {
	inner, err := NewEdSigner()
	require.NoError(t, err)

	t.Run("approved", func(t *testing.T) {
		s := NewInteractive(inner, fixedApprover{answer: true})
		sig, err := s.Sign(context.Background(), []byte("payload"))
		require.NoError(t, err)
		require.NotEmpty(t, sig)
	})

	t.Run("declined", func(t *testing.T) {
		s := NewInteractive(inner, fixedApprover{answer: false})
		_, err := s.Sign(context.Background(), []byte("payload"))
		require.ErrorIs(t, err, gateway.ErrUserRejected)
	})
}
