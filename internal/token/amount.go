package token

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrAmountOverflow indicates an arithmetic result would exceed the
// representable 128-bit range. Conservation makes this unreachable for
// balances, but credits are checked anyway and the operation rejected.
var ErrAmountOverflow = errors.New("amount overflow")

var errAmountUnderflow = errors.New("amount underflow")

// maxAmountValue is 2^128 - 1, the largest representable token quantity.
var maxAmountValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Amount is an unsigned token quantity with 128 bits of range. The zero value
// is zero tokens. Amounts are immutable; arithmetic returns new values and
// never produces a negative or out-of-range result.
type Amount struct {
	n *big.Int
}

// NewAmount builds an Amount from an unsigned integer.
func NewAmount(v uint64) Amount {
	return Amount{n: new(big.Int).SetUint64(v)}
}

// ParseAmount decodes a base-10 amount string.
func ParseAmount(s string) (Amount, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return amountFromBig(n)
}

func amountFromBig(n *big.Int) (Amount, error) {
	if n.Sign() < 0 {
		return Amount{}, errAmountUnderflow
	}
	if n.Cmp(maxAmountValue) > 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{n: n}, nil
}

// Add returns a+b, or ErrAmountOverflow if the sum exceeds the 128-bit range.
func (a Amount) Add(b Amount) (Amount, error) {
	return amountFromBig(new(big.Int).Add(a.big(), b.big()))
}

// Sub returns a-b. Callers must validate a >= b first; a negative result is
// reported as an error rather than wrapped.
func (a Amount) Sub(b Amount) (Amount, error) {
	return amountFromBig(new(big.Int).Sub(a.big(), b.big()))
}

// Cmp compares two amounts, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// IsZero reports whether the amount is zero tokens.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// BigInt returns a copy of the amount as a big integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.big())
}

// String renders the amount in base 10.
func (a Amount) String() string {
	return a.big().String()
}

// MarshalJSON encodes the amount as a decimal string so 128-bit values
// survive JSON number precision limits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes an amount from a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("amount must be a decimal string, got %s", s)
	}
	parsed, err := ParseAmount(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) big() *big.Int {
	if a.n == nil {
		return big.NewInt(0)
	}
	return a.n
}
