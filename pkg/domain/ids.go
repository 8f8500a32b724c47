package domain

import "github.com/google/uuid"

// Typed identifiers keep references between entities explicit. A Transaction
// pointing at a DepositID cannot be accidentally fed a UserID.
type (
	UserID        string
	DepositID     string
	WithdrawalID  string
	TransactionID string
	ReferralID    string
)

func NewUserID() UserID               { return UserID(uuid.NewString()) }
func NewDepositID() DepositID         { return DepositID(uuid.NewString()) }
func NewWithdrawalID() WithdrawalID   { return WithdrawalID(uuid.NewString()) }
func NewTransactionID() TransactionID { return TransactionID(uuid.NewString()) }
func NewReferralID() ReferralID       { return ReferralID(uuid.NewString()) }

// NewReferralCode returns a short shareable code for inviting new users.
// Uniqueness is enforced by the user store, not here.
func NewReferralCode() string {
	return uuid.NewString()[:8]
}
