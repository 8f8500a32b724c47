package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// ReconcileReport summarizes one repair pass over the audit ledger.
type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Orphaned int `json:"orphaned"`
}

// Reconcile re-derives the status of pending ledger rows from their owning
// request. Rows whose request reached a terminal status get the implied
// outcome; rows whose request is still pending are left alone; rows with no
// resolvable request are counted as orphans and reported. The pass only
// touches ledger rows, never balances, so running it is always safe.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Reconcile")
	defer span.End()

	pending, err := s.transactions.ListPending(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{Scanned: len(pending)}
	for _, row := range pending {
		switch row.Type {
		case models.TxTypeDeposit, models.TxTypeWithdrawal:
		default:
			// Bonus and reward rows are born terminal; a pending one is a bug
			// upstream, not something this pass can decide.
			report.Orphaned++
			continue
		}

		status, hash, ok, err := s.requestOutcome(ctx, row)
		if err != nil {
			return report, err
		}
		if !ok {
			report.Orphaned++
			s.log.Warn("ledger row has no resolvable request",
				zap.String("transaction_id", string(row.ID)),
				zap.String("request_id", row.RequestID))
			continue
		}
		if status == models.StatusPending {
			continue
		}

		err = s.transactions.MarkProcessed(ctx, row.ID, models.OutcomeFor(status), hash, "", time.Now())
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue // lost a race with a live decision, already settled
			}
			return report, err
		}
		report.Repaired++
	}

	s.log.Info("ledger reconcile finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("repaired", report.Repaired),
		zap.Int("orphaned", report.Orphaned))
	return report, nil
}

// requestOutcome resolves the request owning a ledger row and returns its
// status and payout hash. ok is false when no request can be found, by id or
// by the legacy tuple.
func (s *Service) requestOutcome(ctx context.Context, row models.Transaction) (models.RequestStatus, string, bool, error) {
	if row.Type == models.TxTypeDeposit {
		if row.RequestID != "" {
			d, err := s.deposits.FindByID(ctx, id.DepositID(row.RequestID))
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", "", false, nil
			}
			if err != nil {
				return "", "", false, err
			}
			return d.Status, d.TransactionHash, true, nil
		}
		return s.matchDepositByTuple(ctx, row)
	}

	if row.RequestID != "" {
		w, err := s.withdrawals.FindByID(ctx, id.WithdrawalID(row.RequestID))
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", "", false, nil
		}
		if err != nil {
			return "", "", false, err
		}
		return w.Status, w.TransactionHash, true, nil
	}
	return s.matchWithdrawalByTuple(ctx, row)
}

// matchDepositByTuple is the legacy correlation: oldest terminal deposit for
// the same user and amount. Ambiguity resolves to the oldest, matching how
// the rows were originally written in order.
func (s *Service) matchDepositByTuple(ctx context.Context, row models.Transaction) (models.RequestStatus, string, bool, error) {
	deposits, err := s.deposits.ListByUser(ctx, row.UserID)
	if err != nil {
		return "", "", false, err
	}
	var best *models.Deposit
	for i := range deposits {
		d := &deposits[i]
		if d.Amount != row.Amount || !d.Status.Terminal() {
			continue
		}
		if best == nil || d.CreatedAt.Before(best.CreatedAt) {
			best = d
		}
	}
	if best == nil {
		return "", "", false, nil
	}
	return best.Status, best.TransactionHash, true, nil
}

func (s *Service) matchWithdrawalByTuple(ctx context.Context, row models.Transaction) (models.RequestStatus, string, bool, error) {
	withdrawals, err := s.withdrawals.ListByUser(ctx, row.UserID)
	if err != nil {
		return "", "", false, err
	}
	var best *models.Withdrawal
	for i := range withdrawals {
		w := &withdrawals[i]
		if w.Amount != row.Amount || !w.Status.Terminal() {
			continue
		}
		if best == nil || w.CreatedAt.Before(best.CreatedAt) {
			best = w
		}
	}
	if best == nil {
		return "", "", false, nil
	}
	return best.Status, best.TransactionHash, true, nil
}
