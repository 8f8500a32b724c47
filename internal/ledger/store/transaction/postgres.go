package transaction

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

// PostgresStore persists the audit ledger.
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

const txColumns = `id, user_id, request_id, type, amount, status,
	transaction_hash, description, processed_by, processed_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, t *models.Transaction) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
	`, t.ID, t.UserID, t.RequestID, t.Type, t.Amount, t.Status,
		t.TransactionHash, t.Description, string(t.ProcessedBy), t.ProcessedAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, txID id.TransactionID) (models.Transaction, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, txID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) FindPendingByRequest(ctx context.Context, requestID string) (models.Transaction, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE request_id = $1 AND status = 'pending'
		ORDER BY created_at LIMIT 1
	`, requestID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find pending transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) FindPendingByTuple(ctx context.Context, userID id.UserID, txType models.TransactionType, amount float64) (models.Transaction, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE user_id = $1 AND type = $2 AND amount = $3 AND status = 'pending'
		ORDER BY created_at LIMIT 1
	`, userID, txType, amount)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("find pending transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, txID id.TransactionID, status models.TransactionStatus, txHash string, actor id.UserID, at time.Time) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE transactions SET status = $2,
			transaction_hash = COALESCE(NULLIF($3, ''), transaction_hash),
			processed_by = $4, processed_at = $5
		WHERE id = $1 AND status = 'pending'
	`, txID, status, txHash, actor, at)
	if err != nil {
		return fmt.Errorf("mark transaction processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	existing, findErr := s.FindByID(ctx, txID)
	if findErr != nil {
		return findErr
	}
	return fmt.Errorf("transaction already %s: %w", existing.Status, sentinel.ErrConflict)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Transaction, error) {
	return s.list(ctx, `WHERE user_id = $1`, string(userID))
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Transaction, error) {
	return s.list(ctx, ``)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]models.Transaction, error) {
	return s.list(ctx, `WHERE status = 'pending'`)
}

func (s *PostgresStore) list(ctx context.Context, where string, args ...any) ([]models.Transaction, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		t           models.Transaction
		processedBy sql.NullString
		processedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.RequestID, &t.Type, &t.Amount, &t.Status,
		&t.TransactionHash, &t.Description, &processedBy, &processedAt, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	if processedBy.Valid {
		t.ProcessedBy = id.UserID(processedBy.String)
	}
	if processedAt.Valid {
		t.ProcessedAt = &processedAt.Time
	}
	return t, nil
}
