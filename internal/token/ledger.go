package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInsufficientBalance occurs when a debit would push the source
	// account below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance occurs when a delegated transfer exceeds the
	// remaining amount the owner approved for the spender.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger tracks ownership of a fixed supply of tokens across accounts and is
// the only component allowed to mutate the balance and allowance tables. All
// validation happens before any write, so every failed operation leaves the
// store untouched. Mutations on one ledger are serialized by an internal lock
// to keep the read/validate/write sequence atomic under concurrent callers.
type Ledger struct {
	mu          sync.Mutex
	store       Store
	sink        Sink
	totalSupply Amount
}

// New attaches a ledger to the store. On first use the entire initial supply
// is minted to the treasury account and the one mint transfer event (nil
// source) is emitted. When the store already records a supply, for example
// after a service restart over Postgres, the existing state is adopted and
// initialSupply is ignored; the supply is fixed for the life of the ledger.
func New(ctx context.Context, store Store, sink Sink, treasury AccountID, initialSupply Amount) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	existing, recorded, err := store.Supply(ctx)
	if err != nil {
		return nil, fmt.Errorf("read supply: %w", err)
	}
	if recorded {
		return &Ledger{store: store, sink: sink, totalSupply: existing}, nil
	}

	change := Changeset{Supply: &initialSupply}
	if !initialSupply.IsZero() {
		change.Balances = append(change.Balances, BalanceWrite{Account: treasury, Amount: initialSupply})
	}
	if err := store.Apply(ctx, change); err != nil {
		return nil, fmt.Errorf("mint initial supply: %w", err)
	}

	l := &Ledger{store: store, sink: sink, totalSupply: initialSupply}
	l.publish(ctx, TransferEvent{From: nil, To: treasury, Value: initialSupply})
	return l, nil
}

// Movement reports the post-commit state of a completed transfer, captured
// while the ledger lock is still held so a concurrent operation cannot skew
// the reported numbers.
type Movement struct {
	FromBalance Amount
	ToBalance   Amount
	// Remaining is the allowance left to the spender after a delegated
	// transfer. Direct transfers leave it zero.
	Remaining Amount
}

// TotalSupply returns the fixed total number of tokens in existence.
func (l *Ledger) TotalSupply() Amount {
	return l.totalSupply
}

// BalanceOf returns the balance of the account, zero when it never held tokens.
func (l *Ledger) BalanceOf(ctx context.Context, account AccountID) (Amount, error) {
	return l.store.Balance(ctx, account)
}

// Allowance returns how many tokens spender may still move out of owner's
// balance, zero when no approval was granted.
func (l *Ledger) Allowance(ctx context.Context, owner, spender AccountID) (Amount, error) {
	return l.store.Allowance(ctx, owner, spender)
}

// Transfer moves value from the caller to another account and reports the
// resulting balances.
func (l *Ledger) Transfer(ctx context.Context, caller, to AccountID, value Amount) (Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	change, movement, err := l.moveChangeset(ctx, caller, to, value)
	if err != nil {
		return Movement{}, err
	}
	if err := l.store.Apply(ctx, change); err != nil {
		return Movement{}, err
	}

	from := caller
	l.publish(ctx, TransferEvent{From: &from, To: to, Value: value})
	return movement, nil
}

// Approve sets the allowance of spender over the caller's balance to value,
// overwriting any prior approval. Zero revokes. The value may exceed the
// caller's balance; it is only a ceiling checked at spend time.
func (l *Ledger) Approve(ctx context.Context, caller, spender AccountID, value Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	change := Changeset{Allowances: []AllowanceWrite{{Owner: caller, Spender: spender, Amount: value}}}
	if err := l.store.Apply(ctx, change); err != nil {
		return err
	}

	l.publish(ctx, ApprovalEvent{Owner: caller, Spender: spender, Value: value})
	return nil
}

// TransferFrom moves value from the owner account to another account on the
// strength of the allowance the owner granted the caller. The allowance is
// checked before the balance and decremented only when the move succeeds,
// committed in the same changeset as the balance writes.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to AccountID, value Amount) (Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	granted, err := l.store.Allowance(ctx, from, caller)
	if err != nil {
		return Movement{}, err
	}
	if granted.Cmp(value) < 0 {
		return Movement{}, ErrInsufficientAllowance
	}

	change, movement, err := l.moveChangeset(ctx, from, to, value)
	if err != nil {
		return Movement{}, err
	}

	remaining, err := granted.Sub(value)
	if err != nil {
		return Movement{}, err
	}
	change.Allowances = append(change.Allowances, AllowanceWrite{Owner: from, Spender: caller, Amount: remaining})
	movement.Remaining = remaining

	if err := l.store.Apply(ctx, change); err != nil {
		return Movement{}, err
	}

	owner := from
	l.publish(ctx, TransferEvent{From: &owner, To: to, Value: value})
	return movement, nil
}

// Audit verifies conservation: the sum of all stored balances must equal the
// total supply.
func (l *Ledger) Audit(ctx context.Context) error {
	sum, err := l.store.SumBalances(ctx)
	if err != nil {
		return err
	}
	if sum.Cmp(l.totalSupply) != 0 {
		return fmt.Errorf("balance sum %s does not match total supply %s", sum, l.totalSupply)
	}
	return nil
}

// moveChangeset validates a movement of value between two accounts and
// returns the balance writes to commit along with the balances as they will
// stand once committed. It performs no writes itself. A self-transfer is
// validated like any other but yields no writes: the debit and credit
// cancel, so the stored balance must stay exactly as it was.
func (l *Ledger) moveChangeset(ctx context.Context, from, to AccountID, value Amount) (Changeset, Movement, error) {
	fromBalance, err := l.store.Balance(ctx, from)
	if err != nil {
		return Changeset{}, Movement{}, err
	}
	if fromBalance.Cmp(value) < 0 {
		return Changeset{}, Movement{}, ErrInsufficientBalance
	}

	if from == to {
		return Changeset{}, Movement{FromBalance: fromBalance, ToBalance: fromBalance}, nil
	}

	toBalance, err := l.store.Balance(ctx, to)
	if err != nil {
		return Changeset{}, Movement{}, err
	}
	credited, err := toBalance.Add(value)
	if err != nil {
		return Changeset{}, Movement{}, err
	}
	debited, err := fromBalance.Sub(value)
	if err != nil {
		return Changeset{}, Movement{}, err
	}

	change := Changeset{Balances: []BalanceWrite{
		{Account: from, Amount: debited},
		{Account: to, Amount: credited},
	}}
	return change, Movement{FromBalance: debited, ToBalance: credited}, nil
}

// publish delivers an event to the sink. Observation is best effort; the
// ledger state is already committed when this runs.
func (l *Ledger) publish(ctx context.Context, event Event) {
	if l.sink == nil {
		return
	}
	_ = l.sink.Publish(ctx, event)
}
