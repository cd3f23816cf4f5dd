package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsbot/internal/ledger"
)

func TestBonusClockClaim(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	_, _, err := store.GetOrCreateUser(ctx, 1, "Test", "test")
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewBonusClock(store)
	clock.now = func() time.Time { return base }

	// Never claimed before.
	res, err := clock.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(DailyBonusAward), res.Award)
	assert.Equal(t, int64(50), res.Balance)

	// One millisecond short of the window still counts as a full hour left.
	clock.now = func() time.Time { return base.Add(BonusWindow - time.Millisecond) }
	res, err = clock.Claim(ctx, 1)
	assert.ErrorIs(t, err, ledger.ErrBonusNotReady)
	assert.Equal(t, 1, res.HoursRemaining)

	// Half an hour in, 24 hours are reported: 23h30m rounds up.
	clock.now = func() time.Time { return base.Add(30 * time.Minute) }
	res, err = clock.Claim(ctx, 1)
	assert.ErrorIs(t, err, ledger.ErrBonusNotReady)
	assert.Equal(t, 24, res.HoursRemaining)

	// Exactly at the window boundary the claim succeeds again.
	clock.now = func() time.Time { return base.Add(BonusWindow) }
	res, err = clock.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Balance)
}

func TestBonusClockUnknownUser(t *testing.T) {
	clock := NewBonusClock(ledger.NewMemoryStore())
	_, err := clock.Claim(context.Background(), 404)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}
