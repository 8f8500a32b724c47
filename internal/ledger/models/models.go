package models

import (
	"time"

	id "suci/pkg/domain"
)

// User is the identity plus the head of its balance ledger.
//
// Invariants:
//   - Balance never goes negative
//   - IsActive and RegistrationDepositVerified are always equal; both flip
//     together when a registration deposit is decided
//   - AchievedLevels holds each granted reward level at most once
type User struct {
	ID            id.UserID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	WalletAddress string    `json:"wallet_address,omitempty"`

	Balance          float64 `json:"balance"`
	TotalDeposits    float64 `json:"total_deposits"`
	TotalWithdrawals float64 `json:"total_withdrawals"`
	ReferralEarnings float64 `json:"referral_earnings"`

	IsActive                    bool    `json:"is_active"`
	RegistrationDepositPaid     bool    `json:"registration_deposit_paid"`
	RegistrationDepositVerified bool    `json:"registration_deposit_verified"`
	RegistrationDepositAmount   float64 `json:"registration_deposit_amount,omitempty"`

	ReferralCode   string    `json:"referral_code"`
	ReferredBy     id.UserID `json:"referred_by,omitempty"`
	AchievedLevels []int     `json:"achieved_levels"`

	IsAdmin         bool      `json:"is_admin"`
	LastLogin       time.Time `json:"last_login,omitzero"`
	LastLoginDevice string    `json:"last_login_device,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLevel reports whether the reward level was already granted.
func (u *User) HasLevel(level int) bool {
	for _, l := range u.AchievedLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Deposit is a funding request. Created by user action (regular) or the
// registration flow (IsRegistrationDeposit set, immutable afterwards) and
// resolved exactly once by an admin decision. Never deleted.
type Deposit struct {
	ID                    id.DepositID  `json:"id"`
	UserID                id.UserID     `json:"user_id"`
	Amount                float64       `json:"amount"`
	TransactionHash       string        `json:"transaction_hash,omitempty"`
	WalletAddress         string        `json:"wallet_address"`
	Status                RequestStatus `json:"status"`
	IsRegistrationDeposit bool          `json:"is_registration_deposit"`
	AdminNotes            string        `json:"admin_notes,omitempty"`
	ApprovedBy            id.UserID     `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time    `json:"approved_at,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

// Withdrawal is a payout request. The amount is debited from the balance at
// creation; rejection refunds it, approval only bumps TotalWithdrawals.
type Withdrawal struct {
	ID              id.WithdrawalID `json:"id"`
	UserID          id.UserID       `json:"user_id"`
	Amount          float64         `json:"amount"`
	WalletAddress   string          `json:"wallet_address,omitempty"`
	Status          RequestStatus   `json:"status"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	AdminNotes      string          `json:"admin_notes,omitempty"`
	ApprovedBy      id.UserID       `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Transaction is one row of the append-only audit ledger.
//
// RequestID references the originating Deposit or Withdrawal so approval
// never has to correlate by (user, type, amount) alone; bonus and reward
// rows carry an empty RequestID.
type Transaction struct {
	ID              id.TransactionID  `json:"id"`
	UserID          id.UserID         `json:"user_id"`
	RequestID       string            `json:"request_id,omitempty"`
	Type            TransactionType   `json:"type"`
	Amount          float64           `json:"amount"`
	Status          TransactionStatus `json:"status"`
	TransactionHash string            `json:"transaction_hash,omitempty"`
	Description     string            `json:"description,omitempty"`
	ProcessedBy     id.UserID         `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
