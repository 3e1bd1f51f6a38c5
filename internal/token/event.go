package token

import "context"

const (
	// KindTransfer marks events produced by successful transfers and the
	// initial supply mint.
	KindTransfer = "transfer"
	// KindApproval marks events produced by allowance updates.
	KindApproval = "approval"
)

// Event is a domain event emitted by the ledger after a successful mutation.
type Event interface {
	Kind() string
}

// TransferEvent records a completed movement of tokens. From is nil exactly
// once, for the mint that credits the treasury at construction.
type TransferEvent struct {
	From  *AccountID
	To    AccountID
	Value Amount
}

// Kind identifies the event type.
func (TransferEvent) Kind() string { return KindTransfer }

// ApprovalEvent records an allowance being set by an owner for a spender.
type ApprovalEvent struct {
	Owner   AccountID
	Spender AccountID
	Value   Amount
}

// Kind identifies the event type.
func (ApprovalEvent) Kind() string { return KindApproval }

// Sink receives ledger events for delivery to downstream observers. Delivery
// is best effort: a failing sink never fails the ledger operation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
