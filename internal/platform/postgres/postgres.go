// Package postgres opens the database pool and owns the schema bootstrap.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables when they do not exist yet. Idempotent;
// safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	wallet_address TEXT NOT NULL DEFAULT '',
	balance DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (balance >= 0),
	total_deposits DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_withdrawals DOUBLE PRECISION NOT NULL DEFAULT 0,
	referral_earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	registration_deposit_paid BOOLEAN NOT NULL DEFAULT FALSE,
	registration_deposit_verified BOOLEAN NOT NULL DEFAULT FALSE,
	registration_deposit_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	referral_code TEXT NOT NULL UNIQUE,
	referred_by TEXT,
	achieved_levels INTEGER[] NOT NULL DEFAULT '{}',
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	last_login TIMESTAMPTZ,
	last_login_device TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS deposits (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
	transaction_hash TEXT NOT NULL DEFAULT '',
	wallet_address TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	is_registration_deposit BOOLEAN NOT NULL DEFAULT FALSE,
	admin_notes TEXT NOT NULL DEFAULT '',
	approved_by TEXT,
	approved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS deposits_user_idx ON deposits (user_id);
CREATE INDEX IF NOT EXISTS deposits_status_idx ON deposits (status);

CREATE TABLE IF NOT EXISTS withdrawals (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
	wallet_address TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	transaction_hash TEXT NOT NULL DEFAULT '',
	admin_notes TEXT NOT NULL DEFAULT '',
	approved_by TEXT,
	approved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS withdrawals_user_idx ON withdrawals (user_id);
CREATE INDEX IF NOT EXISTS withdrawals_status_idx ON withdrawals (status);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	request_id TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	transaction_hash TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	processed_by TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id);
CREATE INDEX IF NOT EXISTS transactions_request_idx ON transactions (request_id) WHERE request_id <> '';

CREATE TABLE IF NOT EXISTS referrals (
	id TEXT PRIMARY KEY,
	referrer_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	referred_id TEXT NOT NULL UNIQUE REFERENCES users (id) ON DELETE CASCADE,
	side TEXT NOT NULL CHECK (side IN ('left', 'right')),
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS referrals_referrer_idx ON referrals (referrer_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);
`
