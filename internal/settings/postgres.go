package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"suci/pkg/platform/sentinel"
)

// PostgresStore persists settings with key as the primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Setting, error) {
	var setting Setting
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM settings WHERE key = $1`, key).
		Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Setting{}, fmt.Errorf("get setting: %w", err)
	}
	return setting, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value, description string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			description = COALESCE(NULLIF(EXCLUDED.description, ''), settings.description),
			updated_at = EXCLUDED.updated_at
	`, key, value, description, time.Now())
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var setting Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list settings: %w", err)
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}
