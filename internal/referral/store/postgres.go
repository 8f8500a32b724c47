package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"suci/internal/referral/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
	"suci/pkg/platform/tx"
)

// PostgresStore persists referral edges. PlaceUnder serializes per referrer
// with a transaction-scoped advisory lock, so concurrent registrations under
// the same referrer never compute the side from a stale count; the unique
// index on referred_id backs the one-edge-per-user invariant.
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

const referralColumns = `id, referrer_id, referred_id, side, is_active, created_at`

func (s *PostgresStore) PlaceUnder(ctx context.Context, referrerID, referredID id.UserID) (models.Referral, error) {
	// Join the ambient transaction when one is active, otherwise open one:
	// the advisory lock must live in a transaction to release on commit.
	if _, ok := tx.From(ctx); ok {
		return s.placeUnder(ctx, referrerID, referredID)
	}

	var edge models.Referral
	err := tx.SQLRunner{DB: s.db}.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		edge, err = s.placeUnder(ctx, referrerID, referredID)
		return err
	})
	return edge, err
}

func (s *PostgresStore) placeUnder(ctx context.Context, referrerID, referredID id.UserID) (models.Referral, error) {
	q := s.q(ctx)

	if _, err := q.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, referrerID); err != nil {
		return models.Referral{}, fmt.Errorf("lock referrer: %w", err)
	}

	var count int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, referrerID).Scan(&count); err != nil {
		return models.Referral{}, fmt.Errorf("count children: %w", err)
	}

	edge := models.Referral{
		ID:         id.NewReferralID(),
		ReferrerID: referrerID,
		ReferredID: referredID,
		Side:       models.SideForPosition(count),
		IsActive:   false,
		CreatedAt:  time.Now(),
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO referrals (`+referralColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, edge.ID, edge.ReferrerID, edge.ReferredID, edge.Side, edge.IsActive, edge.CreatedAt)
	if isUniqueViolation(err) {
		return models.Referral{}, fmt.Errorf("user already placed: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return models.Referral{}, fmt.Errorf("insert referral: %w", err)
	}
	return edge, nil
}

func (s *PostgresStore) FindByReferred(ctx context.Context, referredID id.UserID) (models.Referral, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE referred_id = $1`, referredID)
	var edge models.Referral
	err := row.Scan(&edge.ID, &edge.ReferrerID, &edge.ReferredID, &edge.Side, &edge.IsActive, &edge.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Referral{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Referral{}, fmt.Errorf("find referral: %w", err)
	}
	return edge, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, referredID id.UserID, active bool) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE referrals SET is_active = $2 WHERE referred_id = $1`, referredID, active)
	if err != nil {
		return fmt.Errorf("set referral active: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByReferrer(ctx context.Context, referrerID id.UserID) ([]models.Referral, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+referralColumns+` FROM referrals
		WHERE referrer_id = $1 ORDER BY created_at
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var out []models.Referral
	for rows.Next() {
		var edge models.Referral
		if err := rows.Scan(&edge.ID, &edge.ReferrerID, &edge.ReferredID, &edge.Side, &edge.IsActive, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("list referrals: %w", err)
		}
		out = append(out, edge)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByReferrer(ctx context.Context, referrerID id.UserID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, referrerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountActiveByReferrer(ctx context.Context, referrerID id.UserID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1 AND is_active`, referrerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active referrals: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
