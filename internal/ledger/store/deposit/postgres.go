package deposit

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

// PostgresStore persists deposits. The decision update carries its
// status-is-pending precondition in the WHERE clause, making the terminal
// transition a compare-and-set.
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

const depositColumns = `id, user_id, amount, transaction_hash, wallet_address,
	status, is_registration_deposit, admin_notes, approved_by, approved_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.Deposit) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO deposits (`+depositColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
	`, d.ID, d.UserID, d.Amount, d.TransactionHash, d.WalletAddress,
		d.Status, d.IsRegistrationDeposit, d.AdminNotes, string(d.ApprovedBy), d.ApprovedAt, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, depositID id.DepositID) (models.Deposit, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE id = $1`, depositID)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Deposit{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Deposit{}, fmt.Errorf("find deposit: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, depositID id.DepositID, status models.RequestStatus, notes string, actor id.UserID, at time.Time) (models.Deposit, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE deposits SET status = $2,
			admin_notes = COALESCE(NULLIF($3, ''), admin_notes),
			approved_by = $4, approved_at = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING `+depositColumns,
		depositID, status, notes, actor, at)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing or already decided; look again to tell them apart.
		existing, findErr := s.FindByID(ctx, depositID)
		if findErr != nil {
			return models.Deposit{}, findErr
		}
		return models.Deposit{}, fmt.Errorf("deposit already %s: %w", existing.Status, sentinel.ErrConflict)
	}
	if err != nil {
		return models.Deposit{}, fmt.Errorf("decide deposit: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Deposit, error) {
	return s.list(ctx, `WHERE user_id = $1`, string(userID))
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Deposit, error) {
	return s.list(ctx, ``)
}

func (s *PostgresStore) ListTerminal(ctx context.Context) ([]models.Deposit, error) {
	return s.list(ctx, `WHERE status <> 'pending'`)
}

func (s *PostgresStore) ListPendingRegistrations(ctx context.Context) ([]models.Deposit, error) {
	return s.list(ctx, `WHERE is_registration_deposit AND status = 'pending'`)
}

func (s *PostgresStore) SumApproved(ctx context.Context) (float64, error) {
	var sum float64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE status = 'approved'`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum approved deposits: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) CountPending(ctx context.Context, registration bool) (int64, error) {
	var n int64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deposits WHERE status = 'pending' AND is_registration_deposit = $1`,
		registration).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending deposits: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) list(ctx context.Context, where string, args ...any) ([]models.Deposit, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+depositColumns+` FROM deposits `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var out []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("list deposits: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (models.Deposit, error) {
	var (
		d          models.Deposit
		approvedBy sql.NullString
		approvedAt sql.NullTime
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Amount, &d.TransactionHash, &d.WalletAddress,
		&d.Status, &d.IsRegistrationDeposit, &d.AdminNotes, &approvedBy, &approvedAt, &d.CreatedAt)
	if err != nil {
		return models.Deposit{}, err
	}
	if approvedBy.Valid {
		d.ApprovedBy = id.UserID(approvedBy.String)
	}
	if approvedAt.Valid {
		d.ApprovedAt = &approvedAt.Time
	}
	return d, nil
}
