package identity

import (
	"time"

	"github.com/jetonpay/jeton/internal/token"
)

// User represents a registered holder of a token account. The bound Account
// is the opaque identifier the ledger knows the user by; everything else is
// host-layer bookkeeping the ledger never sees.
type User struct {
	ID           string
	Phone        string
	PasswordHash []byte
	Account      token.AccountID
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carries login material supplied by the client.
type Credentials struct {
	Phone    string
	Password string
}
