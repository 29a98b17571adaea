package signal

import (
	"context"
	"testing"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownManager_MarkBinding(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	bindings := newMemBindings(entity.GroupBinding{GroupID: "100", Market: entity.MarketCrypto})
	mgr := NewCooldownManager(bindings, WithCooldownClock(func() time.Time { return now }))

	assert.False(t, mgr.OnCooldown(ctx, 1, entity.MarketCrypto))

	require.NoError(t, mgr.MarkBinding(ctx, 1, entity.MarketCrypto, 10*time.Minute))
	assert.True(t, mgr.OnCooldown(ctx, 1, entity.MarketCrypto))
	// a crypto cooldown does not gate forex posts to the same binding
	assert.False(t, mgr.OnCooldown(ctx, 1, entity.MarketForex))

	now = now.Add(11 * time.Minute)
	assert.False(t, mgr.OnCooldown(ctx, 1, entity.MarketCrypto))
}

func TestCooldownManager_MarkMarketSweepsAllBindings(t *testing.T) {
	ctx := context.Background()
	bindings := newMemBindings(
		entity.GroupBinding{GroupID: "100", Market: entity.MarketCrypto},
		entity.GroupBinding{GroupID: "200", Market: entity.MarketCrypto},
		entity.GroupBinding{GroupID: "300", Market: entity.MarketForex},
	)
	mgr := NewCooldownManager(bindings)

	mgr.MarkMarket(ctx, entity.MarketCrypto, 10*time.Minute)

	assert.True(t, mgr.OnCooldown(ctx, 1, entity.MarketCrypto))
	assert.True(t, mgr.OnCooldown(ctx, 2, entity.MarketCrypto))
	assert.False(t, mgr.OnCooldown(ctx, 3, entity.MarketForex))
}

func TestCooldownManager_MergePreservesOtherMarkets(t *testing.T) {
	ctx := context.Background()
	bindings := newMemBindings(entity.GroupBinding{GroupID: "100", Market: entity.MarketCrypto})
	mgr := NewCooldownManager(bindings)

	require.NoError(t, mgr.MarkBinding(ctx, 1, entity.MarketCrypto, time.Hour))
	require.NoError(t, mgr.MarkBinding(ctx, 1, entity.MarketForex, time.Hour))

	cooldowns, err := bindings.GetCooldowns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cooldowns, 2)
}
