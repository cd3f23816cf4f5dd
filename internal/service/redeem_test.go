package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsbot/internal/ledger"
)

func TestRedeemEngine(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	_, _, err := store.GetOrCreateUser(ctx, 1, "Test", "test")
	require.NoError(t, err)
	require.NoError(t, store.CreateCode(ctx, "WELCOME50", 1, 100))

	engine := NewRedeemEngine(store)

	_, err = engine.Redeem(ctx, "   ", 1)
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = engine.Redeem(ctx, "MISSING", 1)
	assert.ErrorIs(t, err, ledger.ErrCodeNotFound)

	res, err := engine.Redeem(ctx, "  welcome50 ", 1)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME50", res.Code)
	assert.Equal(t, int64(100), res.Award)
	assert.Equal(t, int64(100), res.NewBalance)

	_, err = engine.Redeem(ctx, "WELCOME50", 1)
	assert.ErrorIs(t, err, ledger.ErrAlreadyRedeemed)

	_, _, err = store.GetOrCreateUser(ctx, 2, "Other", "other")
	require.NoError(t, err)
	_, err = engine.Redeem(ctx, "WELCOME50", 2)
	assert.ErrorIs(t, err, ledger.ErrNoSlotsLeft)
}
