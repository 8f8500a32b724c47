// Package service is the admin back office: dashboard stats, request queues,
// and direct user management. Money decisions themselves live in the ledger
// service; this package only reads and manages accounts.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"suci/internal/ledger/models"
	"suci/internal/ledger/store"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

type Service struct {
	users        store.UserStore
	deposits     store.DepositStore
	withdrawals  store.WithdrawalStore
	transactions store.TransactionStore
	log          *zap.Logger
}

func New(users store.UserStore, deposits store.DepositStore, withdrawals store.WithdrawalStore, transactions store.TransactionStore, log *zap.Logger) *Service {
	return &Service{users: users, deposits: deposits, withdrawals: withdrawals, transactions: transactions, log: log}
}

// DashboardStats is the admin landing page summary.
type DashboardStats struct {
	TotalUsers           int64   `json:"totalUsers"`
	ActiveUsers          int64   `json:"activeUsers"`
	TotalDeposits        float64 `json:"totalDeposits"`
	TotalWithdrawals     float64 `json:"totalWithdrawals"`
	PendingDeposits      int64   `json:"pendingDeposits"`
	PendingWithdrawals   int64   `json:"pendingWithdrawals"`
	PendingRegistrations int64   `json:"pendingRegistrations"`
}

// Stats gathers the dashboard counters. The seven aggregates are independent
// reads, so they run concurrently.
func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalUsers, err = s.users.Count(ctx, false)
		return
	})
	g.Go(func() (err error) {
		stats.ActiveUsers, err = s.users.Count(ctx, true)
		return
	})
	g.Go(func() (err error) {
		stats.TotalDeposits, err = s.deposits.SumApproved(ctx)
		return
	})
	g.Go(func() (err error) {
		stats.TotalWithdrawals, err = s.withdrawals.SumApproved(ctx)
		return
	})
	g.Go(func() (err error) {
		stats.PendingDeposits, err = s.deposits.CountPending(ctx, false)
		return
	})
	g.Go(func() (err error) {
		stats.PendingWithdrawals, err = s.withdrawals.CountPending(ctx)
		return
	})
	g.Go(func() (err error) {
		stats.PendingRegistrations, err = s.deposits.CountPending(ctx, true)
		return
	})

	if err := g.Wait(); err != nil {
		return DashboardStats{}, fmt.Errorf("gather dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *Service) User(ctx context.Context, userID id.UserID) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// UpdateUserInput is a patch; nil pointers keep the current value.
type UpdateUserInput struct {
	Username *string  `json:"username"`
	Email    *string  `json:"email"`
	Balance  *float64 `json:"balance"`
	IsActive *bool    `json:"isActive"`
	IsAdmin  *bool    `json:"isAdmin"`
}

// UpdateUser applies an admin edit. Flipping IsActive here also syncs
// RegistrationDepositVerified so the two flags cannot drift apart.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, in UpdateUserInput) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Balance != nil {
		if *in.Balance < 0 {
			return models.User{}, fmt.Errorf("balance cannot be negative: %w", sentinel.ErrInvalidInput)
		}
		user.Balance = *in.Balance
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
		user.RegistrationDepositVerified = *in.IsActive
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, &user); err != nil {
		return models.User{}, err
	}
	s.log.Info("user updated by admin", zap.String("user_id", string(userID)))
	return user, nil
}

// DeleteUser removes the account. Deposits, withdrawals, and ledger rows go
// with it through the store's cascade.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info("user deleted by admin", zap.String("user_id", string(userID)))
	return nil
}

func (s *Service) Deposits(ctx context.Context) ([]models.Deposit, error) {
	return s.deposits.List(ctx)
}

// PendingRegistrations lists registration deposits awaiting verification.
func (s *Service) PendingRegistrations(ctx context.Context) ([]models.Deposit, error) {
	return s.deposits.ListPendingRegistrations(ctx)
}

func (s *Service) Withdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	return s.withdrawals.List(ctx)
}

func (s *Service) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return s.transactions.List(ctx)
}
