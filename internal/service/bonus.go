package service

import (
	"context"
	"errors"
	"time"

	"pointsbot/internal/ledger"
)

const (
	// DailyBonusAward is credited on each successful claim.
	DailyBonusAward = 50
	// BonusWindow is a rolling per-user cooldown, not a calendar-day reset.
	BonusWindow = 24 * time.Hour
)

// BonusClock decides daily-bonus eligibility from the user's last claim
// timestamp and applies the credit through the ledger.
type BonusClock struct {
	store ledger.Store
	now   func() time.Time
}

func NewBonusClock(store ledger.Store) *BonusClock {
	return &BonusClock{store: store, now: time.Now}
}

// BonusResult reports the outcome of a claim. On cooldown, HoursRemaining
// is the ceiling of the time left until the next claim.
type BonusResult struct {
	Balance        int64
	Award          int64
	HoursRemaining int
}

func (c *BonusClock) Claim(ctx context.Context, userID int64) (BonusResult, error) {
	u, remaining, err := c.store.ClaimBonus(ctx, userID, DailyBonusAward, c.now(), BonusWindow)
	if err != nil {
		if errors.Is(err, ledger.ErrBonusNotReady) {
			hours := int((remaining + time.Hour - 1) / time.Hour)
			return BonusResult{HoursRemaining: hours}, err
		}
		return BonusResult{}, err
	}
	return BonusResult{Balance: u.Balance, Award: DailyBonusAward}, nil
}
