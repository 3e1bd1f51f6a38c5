package token

import "context"

// BalanceWrite sets the stored balance for one account. A zero amount removes
// the entry; an absent entry reads back as zero.
type BalanceWrite struct {
	Account AccountID
	Amount  Amount
}

// AllowanceWrite sets the remaining allowance for an (owner, spender) pair.
// A zero amount removes the entry.
type AllowanceWrite struct {
	Owner   AccountID
	Spender AccountID
	Amount  Amount
}

// Changeset is the full set of writes produced by one ledger operation. A
// store must commit all of them or none of them.
type Changeset struct {
	Supply     *Amount
	Balances   []BalanceWrite
	Allowances []AllowanceWrite
}

// Store is the key/value contract the ledger requires of its persistence
// medium. Reads default to zero for absent keys. The medium itself (maps,
// Postgres) is a host concern.
type Store interface {
	// Supply returns the persisted total supply and whether one has been
	// recorded, distinguishing a fresh store from a zero-supply ledger.
	Supply(ctx context.Context) (Amount, bool, error)
	Balance(ctx context.Context, account AccountID) (Amount, error)
	Allowance(ctx context.Context, owner, spender AccountID) (Amount, error)
	// SumBalances totals every stored balance, for conservation audits.
	SumBalances(ctx context.Context) (Amount, error)
	Apply(ctx context.Context, change Changeset) error
}
