package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
	"suci/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. Atomic operations are single
// UPDATE statements with their precondition in the WHERE clause, so they stay
// correct under concurrent approval flows without explicit row locks.
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

// q returns the context transaction when one is active so multi-store units
// share a single transaction.
func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const userColumns = `id, username, email, password_hash, wallet_address,
	balance, total_deposits, total_withdrawals, referral_earnings,
	is_active, registration_deposit_paid, registration_deposit_verified, registration_deposit_amount,
	referral_code, referred_by, achieved_levels, is_admin,
	last_login, last_login_device, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.WalletAddress,
		u.Balance, u.TotalDeposits, u.TotalWithdrawals, u.ReferralEarnings,
		u.IsActive, u.RegistrationDepositPaid, u.RegistrationDepositVerified, u.RegistrationDepositAmount,
		u.ReferralCode, nullableID(u.ReferredBy), pq.Array(levelsToInt64(u.AchievedLevels)), u.IsAdmin,
		nullableTime(u.LastLogin), u.LastLoginDevice, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (models.User, error) {
	return s.findBy(ctx, "id = $1", string(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findBy(ctx, "email = $1", email)
}

func (s *PostgresStore) FindByReferralCode(ctx context.Context, code string) (models.User, error) {
	return s.findBy(ctx, "referral_code = $1", code)
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (models.User, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			username = $2, email = $3, password_hash = $4, wallet_address = $5,
			balance = $6, is_active = $7, registration_deposit_verified = $7,
			registration_deposit_paid = $8, registration_deposit_amount = $9,
			referred_by = $10, is_admin = $11, updated_at = $12
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.WalletAddress,
		u.Balance, u.IsActive, u.RegistrationDepositPaid, u.RegistrationDepositAmount,
		nullableID(u.ReferredBy), u.IsAdmin, time.Now(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("update user: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, onlyActive bool) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	if onlyActive {
		query += ` WHERE is_active`
	}
	var n int64
	if err := s.q(ctx).QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ApplyBalanceDelta(ctx context.Context, userID id.UserID, delta float64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("balance cannot absorb %.2f: %w", delta, sentinel.ErrInvalidState)
}

func (s *PostgresStore) AddTotals(ctx context.Context, userID id.UserID, deposits, withdrawals float64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET total_deposits = total_deposits + $2,
			total_withdrawals = total_withdrawals + $3, updated_at = now()
		WHERE id = $1
	`, userID, deposits, withdrawals)
	if err != nil {
		return fmt.Errorf("add totals: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetActivation(ctx context.Context, userID id.UserID, active bool) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET is_active = $2, registration_deposit_verified = $2, updated_at = now()
		WHERE id = $1
	`, userID, active)
	if err != nil {
		return fmt.Errorf("set activation: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetRegistrationPaid(ctx context.Context, userID id.UserID, amount float64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET registration_deposit_paid = TRUE,
			registration_deposit_amount = $2, updated_at = now()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("set registration paid: %w", err)
	}
	return requireRow(res)
}

// GrantLevel relies on the WHERE clause to make check-and-append one atomic
// statement; two concurrent grants for the same (user, level) cannot both
// match the NOT ANY condition.
func (s *PostgresStore) GrantLevel(ctx context.Context, userID id.UserID, level int, reward float64) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET achieved_levels = achieved_levels || $2::int,
			balance = balance + $3, referral_earnings = referral_earnings + $3,
			updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(achieved_levels))
	`, userID, level, reward)
	if err != nil {
		return false, fmt.Errorf("grant level: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time, device string) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE users SET last_login = $2, last_login_device = $3 WHERE id = $1
	`, userID, at, device)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u          models.User
		referredBy sql.NullString
		lastLogin  sql.NullTime
		levels     []int64
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.WalletAddress,
		&u.Balance, &u.TotalDeposits, &u.TotalWithdrawals, &u.ReferralEarnings,
		&u.IsActive, &u.RegistrationDepositPaid, &u.RegistrationDepositVerified, &u.RegistrationDepositAmount,
		&u.ReferralCode, &referredBy, pq.Array(&levels), &u.IsAdmin,
		&lastLogin, &u.LastLoginDevice, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if referredBy.Valid {
		u.ReferredBy = id.UserID(referredBy.String)
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	u.AchievedLevels = levelsToInt(levels)
	return u, nil
}

func levelsToInt64(levels []int) []int64 {
	out := make([]int64, len(levels))
	for i, l := range levels {
		out[i] = int64(l)
	}
	return out
}

func levelsToInt(levels []int64) []int {
	out := make([]int, len(levels))
	for i, l := range levels {
		out[i] = int(l)
	}
	return out
}

func nullableID(userID id.UserID) sql.NullString {
	return sql.NullString{String: string(userID), Valid: userID != ""}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func requireRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
