package models

// RequestStatus is the lifecycle of a Deposit or Withdrawal.
//
// Invariants:
//   - pending is the only non-terminal status
//   - pending → approved and pending → rejected are the only transitions
//   - terminal statuses never change again; re-processing a terminal request
//     is a conflict, not a no-op, so duplicate approvals surface loudly
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the status may move to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == StatusPending && next.Terminal()
}

// TransactionType classifies ledger rows.
type TransactionType string

const (
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdrawal TransactionType = "withdrawal"
	TxTypeBonus      TransactionType = "bonus"
	TxTypeReward     TransactionType = "reward"
)

// TransactionStatus mirrors the outcome of the originating request.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusRejected  TransactionStatus = "rejected"
)

// OutcomeFor derives the transaction status implied by a terminal request
// status. The reconcile pass leans on this being a pure function.
func OutcomeFor(s RequestStatus) TransactionStatus {
	if s == StatusApproved {
		return TxStatusCompleted
	}
	return TxStatusRejected
}
