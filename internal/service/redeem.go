package service

import (
	"context"
	"errors"
	"strings"

	"pointsbot/internal/ledger"
)

var ErrInvalidCode = errors.New("invalid code argument")

// RedeemEngine validates a redemption request and applies it through the
// ledger's single-transaction primitive.
type RedeemEngine struct {
	store ledger.Store
}

func NewRedeemEngine(store ledger.Store) *RedeemEngine {
	return &RedeemEngine{store: store}
}

type RedeemResult struct {
	Code       string
	Award      int64
	NewBalance int64
}

// Redeem consumes one slot of the code for the user. Lookup is
// case-insensitive; ledger.ErrCodeNotFound, ledger.ErrAlreadyRedeemed and
// ledger.ErrNoSlotsLeft pass through for the caller to report.
func (e *RedeemEngine) Redeem(ctx context.Context, code string, userID int64) (RedeemResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return RedeemResult{}, ErrInvalidCode
	}

	u, c, err := e.store.ApplyRedemption(ctx, code, userID)
	if err != nil {
		return RedeemResult{}, err
	}
	return RedeemResult{Code: c.Code, Award: c.Points, NewBalance: u.Balance}, nil
}
