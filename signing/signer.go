// Package signing provides the ed25519 signer used to authorize metavote
// transactions. The account identity is implicit: the hex encoding of the
// public key, as the ledger derives it for keys without a named account.
package signing

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"

	"github.com/metapool/go-metavote/common/types"
)

// PrivateKeySize is the expected binary size of a private key.
const PrivateKeySize = ed25519.PrivateKeySize

// PrivateKey is an ed25519 private key.
type PrivateKey = ed25519.PrivateKey

type edSignerOption struct {
	priv    PrivateKey
	file    string
	account types.AccountID
}

// EdSignerOptionFunc modifies EdSigner.
type EdSignerOptionFunc func(*edSignerOption) error

// WithAccountID overrides the implicit account derived from the public key.
func WithAccountID(account types.AccountID) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		opt.account = account
		return nil
	}
}

// ToFile writes the private key to a file after creation.
func ToFile(path string) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.file != "" {
			return errors.New("invalid option ToFile: file already set")
		}
		opt.file = path
		return nil
	}
}

// FromFile loads the private key from a hex-encoded key file.
func FromFile(path string) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.priv != nil {
			return errors.New("invalid option FromFile: private key already set")
		}
		if opt.file != "" {
			return errors.New("invalid option FromFile: file already set")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to open key file at %s: %w", path, err)
		}
		data = bytes.TrimSpace(data)

		if n := hex.DecodedLen(len(data)); n != PrivateKeySize {
			return fmt.Errorf("invalid key size %d/%d for %s", n, PrivateKeySize, filepath.Base(path))
		}

		dst := make([]byte, PrivateKeySize)
		n, err := hex.Decode(dst, data)
		if err != nil || n != PrivateKeySize {
			return fmt.Errorf("decoding private key in %s: %w", filepath.Base(path), err)
		}

		priv := PrivateKey(dst)
		keyPair := ed25519.NewKeyFromSeed(priv[:32])
		if !bytes.Equal(keyPair[32:], priv.Public().(ed25519.PublicKey)) {
			return errors.New("private and public do not match")
		}

		opt.priv = priv
		opt.file = filepath.Base(path)
		return nil
	}
}

// WithPrivateKey sets the private key used by EdSigner.
func WithPrivateKey(priv PrivateKey) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		if opt.priv != nil {
			return errors.New("invalid option WithPrivateKey: private key already set")
		}
		if len(priv) != ed25519.PrivateKeySize {
			return errors.New("could not create EdSigner: invalid key length")
		}
		keyPair := ed25519.NewKeyFromSeed(priv[:32])
		if !bytes.Equal(keyPair[32:], priv.Public().(ed25519.PublicKey)) {
			return errors.New("private and public do not match")
		}
		opt.priv = priv
		return nil
	}
}

// WithKeyFromRand sets the private key using a predictable randomness source.
func WithKeyFromRand(rand io.Reader) EdSignerOptionFunc {
	return func(opt *edSignerOption) error {
		_, priv, err := ed25519.GenerateKey(rand)
		if err != nil {
			return fmt.Errorf("could not generate key pair: %w", err)
		}
		opt.priv = priv
		return nil
	}
}

// EdSigner signs transaction payloads with an ED25519 key.
type EdSigner struct {
	priv    PrivateKey
	file    string
	account types.AccountID
}

// NewEdSigner returns an auto-generated ed signer.
func NewEdSigner(opts ...EdSignerOptionFunc) (*EdSigner, error) {
	cfg := &edSignerOption{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.priv == nil {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("could not generate key pair: %w", err)
		}
		cfg.priv = priv

		if cfg.file != "" {
			_, err := os.Stat(cfg.file)
			switch {
			case errors.Is(err, fs.ErrNotExist):
			// continue
			case err != nil:
				return nil, fmt.Errorf("stat key file %s: %w", filepath.Base(cfg.file), err)
			default: // err == nil
				return nil, fmt.Errorf("save key file %s: %w", filepath.Base(cfg.file), fs.ErrExist)
			}

			dst := make([]byte, hex.EncodedLen(len(cfg.priv)))
			hex.Encode(dst, cfg.priv)
			if err := os.WriteFile(cfg.file, dst, 0o600); err != nil {
				return nil, fmt.Errorf("failed to write key file: %w", err)
			}
		}
	}
	return &EdSigner{
		priv:    cfg.priv,
		file:    cfg.file,
		account: cfg.account,
	}, nil
}

// Sign signs the provided payload. It never blocks; interactive approval is
// layered on top with Interactive.
func (es *EdSigner) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	return ed25519.Sign(es.priv, payload), nil
}

// AccountID returns the account the signature authorizes.
func (es *EdSigner) AccountID() types.AccountID {
	if es.account != "" {
		return es.account
	}
	return types.AccountID(hex.EncodeToString(es.priv.Public().(ed25519.PublicKey)))
}

// PublicKey returns the verifying key in the ledger's text encoding.
func (es *EdSigner) PublicKey() string {
	return "ed25519:" + hex.EncodeToString(es.priv.Public().(ed25519.PublicKey))
}

// Name returns the filename of the key file, if any.
func (es *EdSigner) Name() string {
	if es.file == "" {
		return ""
	}
	return filepath.Base(es.file)
}

// Verify reports whether sig is a valid signature by pub over payload.
func Verify(pub ed25519.PublicKey, payload, sig []byte) bool {
	return ed25519.Verify(pub, payload, sig)
}
