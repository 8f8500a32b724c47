// Package service orchestrates the money flows: deposit and withdrawal
// requests, their admin decisions, bonus credits, and the audit ledger rows
// that shadow each of them. Every balance mutation goes through the store's
// atomic primitives so a request is applied exactly once no matter how many
// admins race on the same decision.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"suci/internal/ledger/models"
	"suci/internal/ledger/store"
	"suci/internal/platform/metrics"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
	"suci/pkg/platform/tx"
)

// MinRegistrationDeposit is the smallest amount that activates an account.
const MinRegistrationDeposit = 60

// ReferralActivator toggles the referral edge owned by a user when their
// registration deposit is decided.
type ReferralActivator interface {
	Activate(ctx context.Context, referredID id.UserID) error
	Deactivate(ctx context.Context, referredID id.UserID) error
}

// RewardProcessor walks the referral chain after an activation and credits
// any newly earned level rewards.
type RewardProcessor interface {
	PropagateActivation(ctx context.Context, userID id.UserID) error
}

// Deps bundles the collaborators so construction sites stay readable.
type Deps struct {
	Users        store.UserStore
	Deposits     store.DepositStore
	Withdrawals  store.WithdrawalStore
	Transactions store.TransactionStore
	Referrals    ReferralActivator
	Rewards      RewardProcessor
	Runner       tx.Runner
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

type Service struct {
	users        store.UserStore
	deposits     store.DepositStore
	withdrawals  store.WithdrawalStore
	transactions store.TransactionStore
	referrals    ReferralActivator
	rewards      RewardProcessor
	runner       tx.Runner
	metrics      *metrics.Metrics
	log          *zap.Logger
	tracer       trace.Tracer
}

func New(d Deps) *Service {
	runner := d.Runner
	if runner == nil {
		runner = tx.Passthrough{}
	}
	return &Service{
		users:        d.Users,
		deposits:     d.Deposits,
		withdrawals:  d.Withdrawals,
		transactions: d.Transactions,
		referrals:    d.Referrals,
		rewards:      d.Rewards,
		runner:       runner,
		metrics:      d.Metrics,
		log:          d.Log,
		tracer:       otel.Tracer("suci/ledger"),
	}
}

// RequestDeposit records a user's claim of a sent payment as a pending
// deposit plus its pending ledger row. Registration deposits go through
// SubmitRegistrationDeposit instead.
func (s *Service) RequestDeposit(ctx context.Context, userID id.UserID, amount float64, txHash, walletAddress string) (models.Deposit, error) {
	if amount <= 0 {
		return models.Deposit{}, fmt.Errorf("deposit amount must be positive: %w", sentinel.ErrInvalidInput)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return models.Deposit{}, err
	}

	deposit := models.Deposit{
		ID:              id.NewDepositID(),
		UserID:          userID,
		Amount:          amount,
		TransactionHash: txHash,
		WalletAddress:   walletAddress,
		Status:          models.StatusPending,
		CreatedAt:       time.Now(),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deposits.Create(ctx, &deposit); err != nil {
			return err
		}
		return s.transactions.Create(ctx, &models.Transaction{
			ID:              id.NewTransactionID(),
			UserID:          userID,
			RequestID:       string(deposit.ID),
			Type:            models.TxTypeDeposit,
			Amount:          amount,
			Status:          models.TxStatusPending,
			TransactionHash: txHash,
			Description:     "Deposit request",
			CreatedAt:       deposit.CreatedAt,
		})
	})
	if err != nil {
		return models.Deposit{}, err
	}
	s.log.Info("deposit requested",
		zap.String("deposit_id", string(deposit.ID)),
		zap.String("user_id", string(userID)),
		zap.Float64("amount", amount))
	return deposit, nil
}

// SubmitRegistrationDeposit records the activation payment for a freshly
// registered account. One submission per user; the amount must cover the
// registration minimum.
func (s *Service) SubmitRegistrationDeposit(ctx context.Context, userID id.UserID, amount float64, txHash, walletAddress string) (models.Deposit, error) {
	if amount < MinRegistrationDeposit {
		return models.Deposit{}, fmt.Errorf("registration deposit must be at least %d: %w", MinRegistrationDeposit, sentinel.ErrInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.Deposit{}, err
	}
	if user.RegistrationDepositPaid {
		return models.Deposit{}, fmt.Errorf("registration deposit already submitted: %w", sentinel.ErrInvalidInput)
	}

	deposit := models.Deposit{
		ID:                    id.NewDepositID(),
		UserID:                userID,
		Amount:                amount,
		TransactionHash:       txHash,
		WalletAddress:         walletAddress,
		Status:                models.StatusPending,
		IsRegistrationDeposit: true,
		CreatedAt:             time.Now(),
	}
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.deposits.Create(ctx, &deposit); err != nil {
			return err
		}
		if err := s.users.SetRegistrationPaid(ctx, userID, amount); err != nil {
			return err
		}
		return s.transactions.Create(ctx, &models.Transaction{
			ID:              id.NewTransactionID(),
			UserID:          userID,
			RequestID:       string(deposit.ID),
			Type:            models.TxTypeDeposit,
			Amount:          amount,
			Status:          models.TxStatusPending,
			TransactionHash: txHash,
			Description:     "Registration deposit",
			CreatedAt:       deposit.CreatedAt,
		})
	})
	if err != nil {
		return models.Deposit{}, err
	}
	s.log.Info("registration deposit submitted",
		zap.String("deposit_id", string(deposit.ID)),
		zap.String("user_id", string(userID)),
		zap.Float64("amount", amount))
	return deposit, nil
}

// RequestWithdrawal debits the amount immediately and records the pending
// request. The debit up front means a user cannot queue withdrawals beyond
// their balance; rejection refunds it.
func (s *Service) RequestWithdrawal(ctx context.Context, userID id.UserID, amount float64, walletAddress string) (models.Withdrawal, error) {
	if amount <= 0 {
		return models.Withdrawal{}, fmt.Errorf("withdrawal amount must be positive: %w", sentinel.ErrInvalidInput)
	}
	if walletAddress == "" {
		return models.Withdrawal{}, fmt.Errorf("wallet address is required: %w", sentinel.ErrInvalidInput)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return models.Withdrawal{}, err
	}

	withdrawal := models.Withdrawal{
		ID:            id.NewWithdrawalID(),
		UserID:        userID,
		Amount:        amount,
		WalletAddress: walletAddress,
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.ApplyBalanceDelta(ctx, userID, -amount); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return fmt.Errorf("insufficient balance: %w", sentinel.ErrInvalidInput)
			}
			return err
		}
		if err := s.withdrawals.Create(ctx, &withdrawal); err != nil {
			return err
		}
		return s.transactions.Create(ctx, &models.Transaction{
			ID:          id.NewTransactionID(),
			UserID:      userID,
			RequestID:   string(withdrawal.ID),
			Type:        models.TxTypeWithdrawal,
			Amount:      amount,
			Status:      models.TxStatusPending,
			Description: "Withdrawal request",
			CreatedAt:   withdrawal.CreatedAt,
		})
	})
	if err != nil {
		return models.Withdrawal{}, err
	}
	s.log.Info("withdrawal requested",
		zap.String("withdrawal_id", string(withdrawal.ID)),
		zap.String("user_id", string(userID)),
		zap.Float64("amount", amount))
	return withdrawal, nil
}

// CreditBonus credits an admin-granted bonus and records it as a completed
// ledger row. Bonuses have no request to decide, so the row is born terminal.
func (s *Service) CreditBonus(ctx context.Context, userID id.UserID, amount float64, description string, actor id.UserID) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, fmt.Errorf("bonus amount must be positive: %w", sentinel.ErrInvalidInput)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return models.Transaction{}, err
	}
	if description == "" {
		description = "Bonus credit"
	}

	now := time.Now()
	row := models.Transaction{
		ID:          id.NewTransactionID(),
		UserID:      userID,
		Type:        models.TxTypeBonus,
		Amount:      amount,
		Status:      models.TxStatusCompleted,
		Description: description,
		ProcessedBy: actor,
		ProcessedAt: &now,
		CreatedAt:   now,
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.ApplyBalanceDelta(ctx, userID, amount); err != nil {
			return err
		}
		return s.transactions.Create(ctx, &row)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if s.metrics != nil {
		s.metrics.BonusesCredited.Inc()
	}
	s.log.Info("bonus credited",
		zap.String("user_id", string(userID)),
		zap.Float64("amount", amount),
		zap.String("actor", string(actor)))
	return row, nil
}

// UserDeposits lists a user's deposit requests.
func (s *Service) UserDeposits(ctx context.Context, userID id.UserID) ([]models.Deposit, error) {
	return s.deposits.ListByUser(ctx, userID)
}

// UserWithdrawals lists a user's withdrawal requests.
func (s *Service) UserWithdrawals(ctx context.Context, userID id.UserID) ([]models.Withdrawal, error) {
	return s.withdrawals.ListByUser(ctx, userID)
}

// UserTransactions lists a user's audit ledger rows.
func (s *Service) UserTransactions(ctx context.Context, userID id.UserID) ([]models.Transaction, error) {
	return s.transactions.ListByUser(ctx, userID)
}
