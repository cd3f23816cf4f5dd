package ledger

import (
	"context"
	"errors"
	"time"

	"pointsbot/internal/domain"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCodeNotFound      = errors.New("redeem code not found")
	ErrCodeExists        = errors.New("redeem code already exists")
	ErrAlreadyRedeemed   = errors.New("code already redeemed by this user")
	ErrNoSlotsLeft       = errors.New("no redemption slots left")
	ErrBonusNotReady     = errors.New("bonus cooldown not elapsed")
)

// Store is the durable repository of User and RedeemCode records. Every
// mutating operation is atomic with respect to other Store operations on the
// same record: concurrent callers never observe a lost update or a
// partially-applied write.
type Store interface {
	// GetOrCreateUser returns the user with the given id, creating it with a
	// zero balance on first contact. The second result reports whether the
	// record was created by this call.
	GetOrCreateUser(ctx context.Context, id int64, firstName, username string) (*domain.User, bool, error)

	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// AdjustBalance atomically applies delta to the user's balance. A debit
	// that would push the balance below zero fails with ErrInsufficientFunds
	// and leaves the record untouched.
	AdjustBalance(ctx context.Context, id int64, delta int64) (*domain.User, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	CountUsers(ctx context.Context) (int, error)

	// FindCode looks a redeem code up case-insensitively.
	FindCode(ctx context.Context, code string) (*domain.RedeemCode, error)

	// CreateCode registers a new redeem code. Codes are unique
	// case-insensitively; a duplicate fails with ErrCodeExists.
	CreateCode(ctx context.Context, code string, slots int, points int64) error

	// ApplyRedemption consumes one slot of the code for the given user and
	// credits the code's points in a single transaction. Fails with
	// ErrCodeNotFound, ErrAlreadyRedeemed or ErrNoSlotsLeft, in that order
	// of precedence, without mutating either record.
	ApplyRedemption(ctx context.Context, code string, userID int64) (*domain.User, *domain.RedeemCode, error)

	// ClaimBonus credits award to the user if at least window has elapsed
	// since their last claim, updating the claim timestamp in the same
	// operation. On cooldown it fails with ErrBonusNotReady and returns the
	// time remaining until the next claim.
	ClaimBonus(ctx context.Context, id, award int64, now time.Time, window time.Duration) (*domain.User, time.Duration, error)
}
