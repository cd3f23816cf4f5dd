package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pointsbot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolationCode = "23505"

// PostgresStore backs the ledger with Postgres. All balance and slot
// mutations are single atomic statements or row-locked transactions, so
// concurrent chats contending on the same record serialize in the database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrCreateUser(ctx context.Context, id int64, firstName, username string) (*domain.User, bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO users (id, first_name, username)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		id, firstName, username,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	created := tag.RowsAffected() == 1

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, COALESCE(first_name, ''), COALESCE(username, ''), balance, last_bonus, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)

	var u domain.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.Username, &u.Balance, &u.LastBonus, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) AdjustBalance(ctx context.Context, id, delta int64) (*domain.User, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE users
		 SET balance = balance + $1
		 WHERE id = $2 AND balance + $1 >= 0
		 RETURNING id, COALESCE(first_name, ''), COALESCE(username, ''), balance, last_bonus, created_at`,
		delta, id,
	)

	var u domain.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.Username, &u.Balance, &u.LastBonus, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the user is missing or the guard rejected the debit.
			if _, gerr := s.GetUser(ctx, id); gerr != nil {
				return nil, gerr
			}
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, COALESCE(first_name, ''), COALESCE(username, ''), balance, last_bonus, created_at
		 FROM users
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.Username, &u.Balance, &u.LastBonus, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *PostgresStore) FindCode(ctx context.Context, code string) (*domain.RedeemCode, error) {
	row := s.db.QueryRow(ctx,
		`SELECT code, slots, points, created_at
		 FROM redeem_codes
		 WHERE LOWER(code) = LOWER($1)`,
		code,
	)

	var c domain.RedeemCode
	if err := row.Scan(&c.Code, &c.Slots, &c.Points, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT user_id FROM code_redemptions WHERE code = LOWER($1) ORDER BY redeemed_at`,
		code,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		c.UsedBy = append(c.UsedBy, id)
	}
	return &c, rows.Err()
}

func (s *PostgresStore) CreateCode(ctx context.Context, code string, slots int, points int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO redeem_codes (code, slots, points) VALUES ($1, $2, $3)`,
		code, slots, points,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create code: %w", err)
	}
	return nil
}

// ApplyRedemption locks the code row so racing redeemers of the same code
// serialize; the claim table's primary key rejects a second claim by the
// same user even across concurrent transactions.
func (s *PostgresStore) ApplyRedemption(ctx context.Context, code string, userID int64) (*domain.User, *domain.RedeemCode, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var c domain.RedeemCode
	err = tx.QueryRow(ctx,
		`SELECT code, slots, points, created_at
		 FROM redeem_codes
		 WHERE LOWER(code) = LOWER($1)
		 FOR UPDATE`,
		code,
	).Scan(&c.Code, &c.Slots, &c.Points, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrCodeNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock code: %w", err)
	}

	var redeemed bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM code_redemptions WHERE code = LOWER($1) AND user_id = $2)`,
		code, userID,
	).Scan(&redeemed)
	if err != nil {
		return nil, nil, err
	}
	if redeemed {
		return nil, nil, ErrAlreadyRedeemed
	}

	if c.Slots <= 0 {
		return nil, nil, ErrNoSlotsLeft
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO code_redemptions (code, user_id) VALUES (LOWER($1), $2)`,
		code, userID,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return nil, nil, ErrAlreadyRedeemed
		}
		return nil, nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`UPDATE redeem_codes SET slots = slots - 1 WHERE LOWER(code) = LOWER($1) RETURNING slots`,
		code,
	).Scan(&c.Slots); err != nil {
		return nil, nil, fmt.Errorf("failed to consume slot: %w", err)
	}

	var u domain.User
	err = tx.QueryRow(ctx,
		`UPDATE users
		 SET balance = balance + $1
		 WHERE id = $2
		 RETURNING id, COALESCE(first_name, ''), COALESCE(username, ''), balance, last_bonus, created_at`,
		c.Points, userID,
	).Scan(&u.ID, &u.FirstName, &u.Username, &u.Balance, &u.LastBonus, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to credit award: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	c.UsedBy = append(c.UsedBy, userID)
	return &u, &c, nil
}

func (s *PostgresStore) ClaimBonus(ctx context.Context, id, award int64, now time.Time, window time.Duration) (*domain.User, time.Duration, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	row := s.db.QueryRow(ctx,
		`UPDATE users
		 SET balance = balance + $2, last_bonus = $3
		 WHERE id = $1 AND $3 - last_bonus >= $4
		 RETURNING id, COALESCE(first_name, ''), COALESCE(username, ''), balance, last_bonus, created_at`,
		id, award, nowMs, windowMs,
	)

	var u domain.User
	err := row.Scan(&u.ID, &u.FirstName, &u.Username, &u.Balance, &u.LastBonus, &u.CreatedAt)
	if err == nil {
		return &u, 0, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, err
	}

	cur, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	remaining := time.Duration(cur.LastBonus+windowMs-nowMs) * time.Millisecond
	return nil, remaining, ErrBonusNotReady
}
