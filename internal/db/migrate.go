package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		first_name TEXT,
		username TEXT,
		balance BIGINT NOT NULL DEFAULT 0,
		last_bonus BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS redeem_codes (
		code TEXT NOT NULL,
		slots INT NOT NULL,
		points BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS redeem_codes_code_ci ON redeem_codes (LOWER(code))`,
	`CREATE TABLE IF NOT EXISTS code_redemptions (
		code TEXT NOT NULL,
		user_id BIGINT NOT NULL,
		redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (code, user_id)
	)`,
}

// Migrate applies the schema. Statements are idempotent so this runs on
// every boot.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
