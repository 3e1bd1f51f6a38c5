package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/jetonpay/jeton/internal/token"
)

// ErrZeroDestination rejects transfers addressed to the all-zero account,
// which no registered user can hold.
var ErrZeroDestination = errors.New("destination account is required")

// Service exposes the ledger operations the HTTP layer consumes. The caller's
// account always arrives as an explicit parameter, resolved from the
// authenticated session by the middleware.
type Service struct {
	ledger *token.Ledger
}

// NewService builds a transfer service over the ledger.
func NewService(ledger *token.Ledger) *Service {
	return &Service{ledger: ledger}
}

// Supply returns the fixed total token supply.
func (s *Service) Supply() token.Amount {
	return s.ledger.TotalSupply()
}

// Balance returns the balance of an account.
func (s *Service) Balance(ctx context.Context, account token.AccountID) (token.Amount, error) {
	return s.ledger.BalanceOf(ctx, account)
}

// Allowance returns the remaining allowance for an (owner, spender) pair.
func (s *Service) Allowance(ctx context.Context, owner, spender token.AccountID) (token.Amount, error) {
	return s.ledger.Allowance(ctx, owner, spender)
}

// TransferInput captures a direct transfer request.
type TransferInput struct {
	To    token.AccountID
	Value token.Amount
}

// TransferResult describes the ledger outcome of a completed transfer. The
// balances come from the ledger's own post-commit snapshot, not a later
// read, so they are exact even under concurrent operations.
type TransferResult struct {
	From        token.AccountID
	To          token.AccountID
	Value       token.Amount
	FromBalance token.Amount
	ToBalance   token.Amount
	CompletedAt time.Time
}

// Transfer moves tokens from the caller to the destination account.
func (s *Service) Transfer(ctx context.Context, caller token.AccountID, input TransferInput) (TransferResult, error) {
	if input.To.IsZero() {
		return TransferResult{}, ErrZeroDestination
	}
	movement, err := s.ledger.Transfer(ctx, caller, input.To, input.Value)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{
		From:        caller,
		To:          input.To,
		Value:       input.Value,
		FromBalance: movement.FromBalance,
		ToBalance:   movement.ToBalance,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// ApproveInput captures an allowance update request.
type ApproveInput struct {
	Spender token.AccountID
	Value   token.Amount
}

// ApproveResult describes the allowance after an approval call.
type ApproveResult struct {
	Owner     token.AccountID
	Spender   token.AccountID
	Allowance token.Amount
}

// Approve sets the caller's allowance for the spender, overwriting any prior
// grant. A zero value revokes the grant.
func (s *Service) Approve(ctx context.Context, caller token.AccountID, input ApproveInput) (ApproveResult, error) {
	if input.Spender.IsZero() {
		return ApproveResult{}, errors.New("spender account is required")
	}
	if err := s.ledger.Approve(ctx, caller, input.Spender, input.Value); err != nil {
		return ApproveResult{}, err
	}
	return ApproveResult{Owner: caller, Spender: input.Spender, Allowance: input.Value}, nil
}

// DelegatedInput captures a transfer the caller performs on behalf of an
// owner, bounded by the allowance the owner granted the caller.
type DelegatedInput struct {
	From  token.AccountID
	To    token.AccountID
	Value token.Amount
}

// DelegatedResult describes the outcome of a delegated transfer.
type DelegatedResult struct {
	TransferResult
	RemainingAllowance token.Amount
}

// TransferFrom spends the caller's allowance to move tokens out of the owner
// account.
func (s *Service) TransferFrom(ctx context.Context, caller token.AccountID, input DelegatedInput) (DelegatedResult, error) {
	if input.To.IsZero() {
		return DelegatedResult{}, ErrZeroDestination
	}
	movement, err := s.ledger.TransferFrom(ctx, caller, input.From, input.To, input.Value)
	if err != nil {
		return DelegatedResult{}, err
	}
	return DelegatedResult{
		TransferResult: TransferResult{
			From:        input.From,
			To:          input.To,
			Value:       input.Value,
			FromBalance: movement.FromBalance,
			ToBalance:   movement.ToBalance,
			CompletedAt: time.Now().UTC(),
		},
		RemainingAllowance: movement.Remaining,
	}, nil
}
