// Package store defines the persistence contracts for the ledger entities.
// Implementations live in per-entity subpackages with an in-memory variant
// for unit tests and a PostgreSQL variant for deployment; both signal a
// missing entity with sentinel.ErrNotFound.
package store

import (
	"context"
	"time"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
)

// UserStore persists users and the atomic balance primitives the approval
// flows depend on. Every mutating method is safe for concurrent use; the
// read-modify-write operations are serialized per user.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByReferralCode(ctx context.Context, code string) (models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context, onlyActive bool) (int64, error)

	// ApplyBalanceDelta atomically adjusts the balance. A delta that would
	// take the balance below zero fails with sentinel.ErrInvalidState and
	// leaves the balance untouched.
	ApplyBalanceDelta(ctx context.Context, userID id.UserID, delta float64) error

	// AddTotals bumps the lifetime deposit/withdrawal counters.
	AddTotals(ctx context.Context, userID id.UserID, deposits, withdrawals float64) error

	// SetActivation flips IsActive and RegistrationDepositVerified together;
	// it is the single writer for that pair so the equality invariant cannot
	// be broken by a partial update.
	SetActivation(ctx context.Context, userID id.UserID, active bool) error

	// SetRegistrationPaid marks the registration deposit as submitted.
	SetRegistrationPaid(ctx context.Context, userID id.UserID, amount float64) error

	// GrantLevel atomically checks AchievedLevels for level and, when absent,
	// appends it and credits reward to both Balance and ReferralEarnings.
	// Returns false without error when the level was already granted.
	GrantLevel(ctx context.Context, userID id.UserID, level int, reward float64) (bool, error)

	RecordLogin(ctx context.Context, userID id.UserID, at time.Time, device string) error
}

// DepositStore persists funding requests. Deposits are never deleted.
type DepositStore interface {
	Create(ctx context.Context, d *models.Deposit) error
	FindByID(ctx context.Context, depositID id.DepositID) (models.Deposit, error)

	// UpdateDecision moves a pending deposit to a terminal status, recording
	// the actor and time. A deposit already decided fails with
	// sentinel.ErrConflict; the check and write are one atomic unit.
	UpdateDecision(ctx context.Context, depositID id.DepositID, status models.RequestStatus, notes string, actor id.UserID, at time.Time) (models.Deposit, error)

	ListByUser(ctx context.Context, userID id.UserID) ([]models.Deposit, error)
	List(ctx context.Context) ([]models.Deposit, error)
	ListTerminal(ctx context.Context) ([]models.Deposit, error)
	ListPendingRegistrations(ctx context.Context) ([]models.Deposit, error)
	SumApproved(ctx context.Context) (float64, error)
	CountPending(ctx context.Context, registration bool) (int64, error)
}

// WithdrawalStore persists payout requests.
type WithdrawalStore interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	FindByID(ctx context.Context, withdrawalID id.WithdrawalID) (models.Withdrawal, error)

	// UpdateDecision is the withdrawal counterpart of DepositStore.UpdateDecision.
	// txHash is recorded on approval only.
	UpdateDecision(ctx context.Context, withdrawalID id.WithdrawalID, status models.RequestStatus, txHash, notes string, actor id.UserID, at time.Time) (models.Withdrawal, error)

	ListByUser(ctx context.Context, userID id.UserID) ([]models.Withdrawal, error)
	List(ctx context.Context) ([]models.Withdrawal, error)
	ListTerminal(ctx context.Context) ([]models.Withdrawal, error)
	SumApproved(ctx context.Context) (float64, error)
	CountPending(ctx context.Context) (int64, error)
}

// TransactionStore is the append-only audit ledger. Rows are created pending
// alongside their originating request and marked processed exactly once when
// the request is decided.
type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (models.Transaction, error)

	// FindPendingByRequest locates the ledger row owned by a request id.
	FindPendingByRequest(ctx context.Context, requestID string) (models.Transaction, error)

	// FindPendingByTuple is the legacy correlation used by the repair pass
	// for rows written before RequestID existed. Ambiguity is the caller's
	// problem; the store returns the oldest match.
	FindPendingByTuple(ctx context.Context, userID id.UserID, txType models.TransactionType, amount float64) (models.Transaction, error)

	MarkProcessed(ctx context.Context, txID id.TransactionID, status models.TransactionStatus, txHash string, actor id.UserID, at time.Time) error

	ListByUser(ctx context.Context, userID id.UserID) ([]models.Transaction, error)
	List(ctx context.Context) ([]models.Transaction, error)
	ListPending(ctx context.Context) ([]models.Transaction, error)
}
