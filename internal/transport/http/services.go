package httptransport

import (
	"context"

	"go.uber.org/zap"

	adminservice "suci/internal/admin/service"
	authservice "suci/internal/auth/service"
	"suci/internal/ledger/models"
	ledgerservice "suci/internal/ledger/service"
	"suci/internal/platform/redis"
	refmodels "suci/internal/referral/models"
	refservice "suci/internal/referral/service"
	"suci/internal/settings"
	id "suci/pkg/domain"
)

// AuthService is the registration/login surface the router needs.
type AuthService interface {
	Register(ctx context.Context, in authservice.RegisterInput) (authservice.AuthResult, error)
	Login(ctx context.Context, email, password, userAgent string) (authservice.AuthResult, error)
	AdminLogin(ctx context.Context, email, password, userAgent string) (authservice.AuthResult, error)
	Profile(ctx context.Context, userID id.UserID) (models.User, error)
	UpdateProfile(ctx context.Context, userID id.UserID, in authservice.UpdateProfileInput) (authservice.AuthResult, error)
}

// LedgerService covers money requests and their admin decisions.
type LedgerService interface {
	RequestDeposit(ctx context.Context, userID id.UserID, amount float64, txHash, walletAddress string) (models.Deposit, error)
	SubmitRegistrationDeposit(ctx context.Context, userID id.UserID, amount float64, txHash, walletAddress string) (models.Deposit, error)
	RequestWithdrawal(ctx context.Context, userID id.UserID, amount float64, walletAddress string) (models.Withdrawal, error)
	UserDeposits(ctx context.Context, userID id.UserID) ([]models.Deposit, error)
	UserWithdrawals(ctx context.Context, userID id.UserID) ([]models.Withdrawal, error)
	UserTransactions(ctx context.Context, userID id.UserID) ([]models.Transaction, error)

	ApproveDeposit(ctx context.Context, depositID id.DepositID, actor id.UserID, notes string) (models.Deposit, error)
	RejectDeposit(ctx context.Context, depositID id.DepositID, actor id.UserID, notes string) (models.Deposit, error)
	VerifyRegistrationDeposit(ctx context.Context, depositID id.DepositID, approve bool, actor id.UserID, notes string) (models.Deposit, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID id.WithdrawalID, txHash string, actor id.UserID, notes string) (models.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID id.WithdrawalID, actor id.UserID, notes string) (models.Withdrawal, error)
	CreditBonus(ctx context.Context, userID id.UserID, amount float64, description string, actor id.UserID) (models.Transaction, error)
	Reconcile(ctx context.Context) (ledgerservice.ReconcileReport, error)
}

// ReferralService exposes a user's own referral view.
type ReferralService interface {
	Direct(ctx context.Context, referrerID id.UserID) ([]refmodels.Referral, error)
	StatsFor(ctx context.Context, referrerID id.UserID) (refservice.Stats, error)
}

// RewardService re-checks the caller's level qualification on demand.
type RewardService interface {
	CheckLevels(ctx context.Context, userID id.UserID) ([]int, error)
}

// AdminService is the back-office read/manage surface.
type AdminService interface {
	Stats(ctx context.Context) (adminservice.DashboardStats, error)
	Users(ctx context.Context) ([]models.User, error)
	User(ctx context.Context, userID id.UserID) (models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, in adminservice.UpdateUserInput) (models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
	Deposits(ctx context.Context) ([]models.Deposit, error)
	PendingRegistrations(ctx context.Context) ([]models.Deposit, error)
	Withdrawals(ctx context.Context) ([]models.Withdrawal, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
}

// SettingsService serves public settings and the admin settings editor.
type SettingsService interface {
	Public(ctx context.Context) settings.PublicSettings
	DepositWallet(ctx context.Context) string
	All(ctx context.Context) ([]settings.Setting, error)
	Update(ctx context.Context, key, value, description string) (settings.Setting, error)
}

type handler struct {
	auth     AuthService
	ledger   LedgerService
	referral ReferralService
	reward   RewardService
	admin    AdminService
	settings SettingsService
	cache    *redis.Client
	log      *zap.Logger
}
