package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
	"suci/pkg/platform/tx"
)

// PostgresStore persists withdrawals; decisions are compare-and-set on
// status = pending.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const withdrawalColumns = `id, user_id, amount, wallet_address, status,
	transaction_hash, admin_notes, approved_by, approved_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, w *models.Withdrawal) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`, w.ID, w.UserID, w.Amount, w.WalletAddress, w.Status,
		w.TransactionHash, w.AdminNotes, string(w.ApprovedBy), w.ApprovedAt, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("create withdrawal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, withdrawalID id.WithdrawalID) (models.Withdrawal, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, withdrawalID)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Withdrawal{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("find withdrawal: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, withdrawalID id.WithdrawalID, status models.RequestStatus, txHash, notes string, actor id.UserID, at time.Time) (models.Withdrawal, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE withdrawals SET status = $2,
			transaction_hash = CASE WHEN $2 = 'approved' AND $3 <> '' THEN $3 ELSE transaction_hash END,
			admin_notes = COALESCE(NULLIF($4, ''), admin_notes),
			approved_by = $5, approved_at = $6
		WHERE id = $1 AND status = 'pending'
		RETURNING `+withdrawalColumns,
		withdrawalID, status, txHash, notes, actor, at)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := s.FindByID(ctx, withdrawalID)
		if findErr != nil {
			return models.Withdrawal{}, findErr
		}
		return models.Withdrawal{}, fmt.Errorf("withdrawal already %s: %w", existing.Status, sentinel.ErrConflict)
	}
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("decide withdrawal: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Withdrawal, error) {
	return s.list(ctx, `WHERE user_id = $1`, string(userID))
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Withdrawal, error) {
	return s.list(ctx, ``)
}

func (s *PostgresStore) ListTerminal(ctx context.Context) ([]models.Withdrawal, error) {
	return s.list(ctx, `WHERE status <> 'pending'`)
}

func (s *PostgresStore) SumApproved(ctx context.Context) (float64, error) {
	var sum float64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE status = 'approved'`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum approved withdrawals: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending withdrawals: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) list(ctx context.Context, where string, args ...any) ([]models.Withdrawal, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var out []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("list withdrawals: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWithdrawal(row rowScanner) (models.Withdrawal, error) {
	var (
		w          models.Withdrawal
		approvedBy sql.NullString
		approvedAt sql.NullTime
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.WalletAddress, &w.Status,
		&w.TransactionHash, &w.AdminNotes, &approvedBy, &approvedAt, &w.CreatedAt)
	if err != nil {
		return models.Withdrawal{}, err
	}
	if approvedBy.Valid {
		w.ApprovedBy = id.UserID(approvedBy.String)
	}
	if approvedAt.Valid {
		w.ApprovedAt = &approvedAt.Time
	}
	return w, nil
}
