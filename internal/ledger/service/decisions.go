package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// ApproveDeposit moves a pending regular deposit to approved and credits the
// balance. The store's compare-and-set on status is what makes the credit
// exactly-once: a second approval loses the race and gets ErrConflict before
// any money moves.
func (s *Service) ApproveDeposit(ctx context.Context, depositID id.DepositID, actor id.UserID, notes string) (models.Deposit, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ApproveDeposit")
	defer span.End()
	span.SetAttributes(attribute.String("deposit_id", string(depositID)))

	deposit, err := s.deposits.FindByID(ctx, depositID)
	if err != nil {
		return models.Deposit{}, err
	}
	if deposit.IsRegistrationDeposit {
		return models.Deposit{}, fmt.Errorf("registration deposits are decided through verification: %w", sentinel.ErrInvalidState)
	}

	now := time.Now()
	var decided models.Deposit
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		decided, err = s.deposits.UpdateDecision(ctx, depositID, models.StatusApproved, notes, actor, now)
		if err != nil {
			return err
		}
		if err := s.users.ApplyBalanceDelta(ctx, decided.UserID, decided.Amount); err != nil {
			return err
		}
		if err := s.users.AddTotals(ctx, decided.UserID, decided.Amount, 0); err != nil {
			return err
		}
		s.settleRequestRow(ctx, string(depositID), decided.UserID, models.TxTypeDeposit, decided.Amount, models.TxStatusCompleted, decided.TransactionHash, actor, now)
		return nil
	})
	if err != nil {
		return models.Deposit{}, err
	}
	if s.metrics != nil {
		s.metrics.DepositsApproved.Inc()
	}
	s.log.Info("deposit approved",
		zap.String("deposit_id", string(depositID)),
		zap.String("user_id", string(decided.UserID)),
		zap.Float64("amount", decided.Amount),
		zap.String("actor", string(actor)))
	return decided, nil
}

// RejectDeposit moves a pending regular deposit to rejected. No balance
// change; the money never arrived.
func (s *Service) RejectDeposit(ctx context.Context, depositID id.DepositID, actor id.UserID, notes string) (models.Deposit, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.RejectDeposit")
	defer span.End()

	deposit, err := s.deposits.FindByID(ctx, depositID)
	if err != nil {
		return models.Deposit{}, err
	}
	if deposit.IsRegistrationDeposit {
		return models.Deposit{}, fmt.Errorf("registration deposits are decided through verification: %w", sentinel.ErrInvalidState)
	}

	now := time.Now()
	var decided models.Deposit
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		decided, err = s.deposits.UpdateDecision(ctx, depositID, models.StatusRejected, notes, actor, now)
		if err != nil {
			return err
		}
		s.settleRequestRow(ctx, string(depositID), decided.UserID, models.TxTypeDeposit, decided.Amount, models.TxStatusRejected, "", actor, now)
		return nil
	})
	if err != nil {
		return models.Deposit{}, err
	}
	if s.metrics != nil {
		s.metrics.DepositsRejected.Inc()
	}
	s.log.Info("deposit rejected",
		zap.String("deposit_id", string(depositID)),
		zap.String("user_id", string(decided.UserID)),
		zap.String("actor", string(actor)))
	return decided, nil
}

// VerifyRegistrationDeposit decides a registration deposit. Approval credits
// the amount, activates the account, activates the user's referral edge, and
// kicks off reward propagation up the chain. Rejection deactivates the
// account and clears the paid flag so the user can submit again.
func (s *Service) VerifyRegistrationDeposit(ctx context.Context, depositID id.DepositID, approve bool, actor id.UserID, notes string) (models.Deposit, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.VerifyRegistrationDeposit")
	defer span.End()
	span.SetAttributes(
		attribute.String("deposit_id", string(depositID)),
		attribute.Bool("approve", approve),
	)

	deposit, err := s.deposits.FindByID(ctx, depositID)
	if err != nil {
		return models.Deposit{}, err
	}
	if !deposit.IsRegistrationDeposit {
		return models.Deposit{}, fmt.Errorf("not a registration deposit: %w", sentinel.ErrInvalidState)
	}

	status := models.StatusRejected
	if approve {
		status = models.StatusApproved
	}
	now := time.Now()
	var decided models.Deposit
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		decided, err = s.deposits.UpdateDecision(ctx, depositID, status, notes, actor, now)
		if err != nil {
			return err
		}
		if approve {
			if err := s.users.ApplyBalanceDelta(ctx, decided.UserID, decided.Amount); err != nil {
				return err
			}
			if err := s.users.AddTotals(ctx, decided.UserID, decided.Amount, 0); err != nil {
				return err
			}
			if err := s.users.SetActivation(ctx, decided.UserID, true); err != nil {
				return err
			}
			if err := s.referrals.Activate(ctx, decided.UserID); err != nil {
				return err
			}
		} else {
			if err := s.users.SetActivation(ctx, decided.UserID, false); err != nil {
				return err
			}
			if err := s.clearRegistrationPaid(ctx, decided.UserID); err != nil {
				return err
			}
			if err := s.referrals.Deactivate(ctx, decided.UserID); err != nil {
				return err
			}
		}
		s.settleRequestRow(ctx, string(depositID), decided.UserID, models.TxTypeDeposit, decided.Amount, models.OutcomeFor(status), decided.TransactionHash, actor, now)
		return nil
	})
	if err != nil {
		return models.Deposit{}, err
	}
	if s.metrics != nil {
		s.metrics.RegistrationsVerified.Inc()
	}
	s.log.Info("registration deposit decided",
		zap.String("deposit_id", string(depositID)),
		zap.String("user_id", string(decided.UserID)),
		zap.String("status", string(status)),
		zap.String("actor", string(actor)))

	// Reward propagation runs after the activation committed. A failure here
	// leaves rewards pending, never an inconsistent activation; the credit is
	// idempotent so it can be retried by the next activation in the subtree.
	if approve && s.rewards != nil {
		if err := s.rewards.PropagateActivation(ctx, decided.UserID); err != nil {
			s.log.Error("reward propagation failed",
				zap.String("user_id", string(decided.UserID)), zap.Error(err))
		}
	}
	return decided, nil
}

// ApproveWithdrawal marks a pending withdrawal approved. The balance was
// debited at request time; approval records the payout hash and bumps the
// lifetime withdrawal counter.
func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalID id.WithdrawalID, txHash string, actor id.UserID, notes string) (models.Withdrawal, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ApproveWithdrawal")
	defer span.End()
	span.SetAttributes(attribute.String("withdrawal_id", string(withdrawalID)))

	now := time.Now()
	var decided models.Withdrawal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		decided, err = s.withdrawals.UpdateDecision(ctx, withdrawalID, models.StatusApproved, txHash, notes, actor, now)
		if err != nil {
			return err
		}
		if err := s.users.AddTotals(ctx, decided.UserID, 0, decided.Amount); err != nil {
			return err
		}
		s.settleRequestRow(ctx, string(withdrawalID), decided.UserID, models.TxTypeWithdrawal, decided.Amount, models.TxStatusCompleted, txHash, actor, now)
		return nil
	})
	if err != nil {
		return models.Withdrawal{}, err
	}
	if s.metrics != nil {
		s.metrics.WithdrawalsApproved.Inc()
	}
	s.log.Info("withdrawal approved",
		zap.String("withdrawal_id", string(withdrawalID)),
		zap.String("user_id", string(decided.UserID)),
		zap.Float64("amount", decided.Amount),
		zap.String("actor", string(actor)))
	return decided, nil
}

// RejectWithdrawal marks a pending withdrawal rejected and refunds the
// amount debited at request time.
func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalID id.WithdrawalID, actor id.UserID, notes string) (models.Withdrawal, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.RejectWithdrawal")
	defer span.End()

	now := time.Now()
	var decided models.Withdrawal
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		decided, err = s.withdrawals.UpdateDecision(ctx, withdrawalID, models.StatusRejected, "", notes, actor, now)
		if err != nil {
			return err
		}
		if err := s.users.ApplyBalanceDelta(ctx, decided.UserID, decided.Amount); err != nil {
			return err
		}
		s.settleRequestRow(ctx, string(withdrawalID), decided.UserID, models.TxTypeWithdrawal, decided.Amount, models.TxStatusRejected, "", actor, now)
		return nil
	})
	if err != nil {
		return models.Withdrawal{}, err
	}
	if s.metrics != nil {
		s.metrics.WithdrawalsRejected.Inc()
	}
	s.log.Info("withdrawal rejected",
		zap.String("withdrawal_id", string(withdrawalID)),
		zap.String("user_id", string(decided.UserID)),
		zap.Float64("amount", decided.Amount),
		zap.String("actor", string(actor)))
	return decided, nil
}

// settleRequestRow marks the audit row owned by a decided request. Correlates
// by RequestID first, falling back to the legacy (user, type, amount) tuple
// for rows written before RequestID existed. A missing row is logged, not
// fatal: the decision already happened and the reconcile pass repairs the
// ledger later.
func (s *Service) settleRequestRow(ctx context.Context, requestID string, userID id.UserID, txType models.TransactionType, amount float64, outcome models.TransactionStatus, txHash string, actor id.UserID, at time.Time) {
	row, err := s.transactions.FindPendingByRequest(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		row, err = s.transactions.FindPendingByTuple(ctx, userID, txType, amount)
	}
	if err != nil {
		s.log.Warn("no pending ledger row for decided request",
			zap.String("request_id", requestID),
			zap.String("user_id", string(userID)),
			zap.Error(err))
		return
	}
	if err := s.transactions.MarkProcessed(ctx, row.ID, outcome, txHash, actor, at); err != nil {
		s.log.Warn("marking ledger row processed failed",
			zap.String("transaction_id", string(row.ID)), zap.Error(err))
	}
}

// clearRegistrationPaid resets the submission flags after a rejection so the
// user can pay again.
func (s *Service) clearRegistrationPaid(ctx context.Context, userID id.UserID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.RegistrationDepositPaid = false
	user.RegistrationDepositAmount = 0
	return s.users.Update(ctx, &user)
}
