package token

import "github.com/google/uuid"

// AccountID is an opaque fixed-size account identifier. The ledger only ever
// compares identifiers for equality; it never interprets the bytes. Identity
// assignment and verification belong to the host layer.
type AccountID [16]byte

// NewAccountID returns a freshly generated account identifier.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// ParseAccountID decodes the canonical string form of an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// String renders the identifier in its canonical UUID form.
func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

// IsZero reports whether the identifier is the all-zero value.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}
