package types

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNegativeAmount is returned when parsing a negative token quantity.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrMalformedAmount is returned when an amount string is not a decimal integer.
	ErrMalformedAmount = errors.New("malformed amount")
)

// Amount is a token quantity in the token's smallest unit. The remote ledger
// encodes amounts as decimal strings to avoid JSON number precision loss, so
// Amount marshals the same way. The zero value is a zero amount and is ready
// to use.
type Amount struct {
	i big.Int
}

// NewAmount returns an Amount holding the given value in smallest units.
func NewAmount(v uint64) Amount {
	var a Amount
	a.i.SetUint64(v)
	return a
}

// ParseAmount parses a decimal string into an Amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if _, ok := a.i.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if a.i.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	return a, nil
}

// MustParseAmount is a ParseAmount that panics on error. Test helper.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(&a.i)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	var r Amount
	r.i.Add(&a.i, &b.i)
	return r
}

// Sub returns a - b. It panics if the result would be negative; callers
// validate spendable balances before subtracting.
func (a Amount) Sub(b Amount) Amount {
	var r Amount
	r.i.Sub(&a.i, &b.i)
	if r.i.Sign() < 0 {
		panic("amount underflow")
	}
	return r
}

// Cmp compares a and b, returning -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.i.Cmp(&b.i)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.i.Sign() == 0
}

func (a Amount) String() string {
	return a.i.String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.i.String() + `"`), nil
}

// UnmarshalJSON decodes a decimal string. Bare JSON numbers are rejected;
// the ledger never emits them for 128-bit quantities.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: expected string, got %s", ErrMalformedAmount, data)
	}
	parsed, err := ParseAmount(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
