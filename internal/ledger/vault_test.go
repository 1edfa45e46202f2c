package ledger

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativestake/custody-ledger/internal/types"
)

func TestVaultSeedDiscipline(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit before seed is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(100))
		require.Error(t, err)
		assert.True(t, types.IsStateError(err))
		// The pulled funds were refunded.
		assert.Equal(t, sdkmath.NewInt(1_000), f.token.balanceOf(alice))
	})

	t.Run("second seed is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(1))
		require.NoError(t, err)
		_, err = f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(1))
		require.Error(t, err)
		assert.True(t, types.IsStateError(err))
	})

	t.Run("compound into unseeded vault is rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(10))
		require.Error(t, err)
		assert.True(t, types.IsStateError(err))
		assert.Equal(t, sdkmath.NewInt(1_000), f.token.balanceOf(seeder))
	})
}

func TestVaultCompoundingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(1))
	require.NoError(t, err)

	shares, err := f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), shares)

	require.NoError(t, f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(10)))
	totalAssets, totalShares := f.ledger.VaultTotals()
	assert.Equal(t, sdkmath.NewInt(111), totalAssets)
	assert.Equal(t, sdkmath.NewInt(101), totalShares)

	payout, err := f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(100))
	require.NoError(t, err)
	assert.True(t, payout.GT(sdkmath.NewInt(100)), "compounded redemption must beat the principal")
	// floor(100 * 111 / 101)
	assert.Equal(t, sdkmath.NewInt(109), payout)
}

func TestVaultRoundingPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(3))
	require.NoError(t, err)
	require.NoError(t, f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(1)))
	// ratio is now 4 assets / 3 shares

	t.Run("deposit rounds minted shares down against the depositor", func(t *testing.T) {
		shares, err := f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(10))
		require.NoError(t, err)
		// exact would be 10*3/4 = 7.5; the vault mints 7
		assert.Equal(t, sdkmath.NewInt(7), shares)
	})

	t.Run("redeem rounds assets down in the vault's favor", func(t *testing.T) {
		payout, err := f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(3))
		require.NoError(t, err)
		// exact would be 3*14/10 = 4.2; the holder receives 4
		assert.Equal(t, sdkmath.NewInt(4), payout)
	})

	t.Run("dust deposits that buy no share are rejected", func(t *testing.T) {
		f2 := newFixture(t, func(p *Params) { p.EnforceMinimums = false })
		_, err := f2.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(2))
		require.NoError(t, err)
		require.NoError(t, f2.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(8)))

		_, err = f2.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(1))
		require.Error(t, err)
		assert.True(t, types.IsValidationError(err))
	})
}

func TestVaultAssetsPerShareMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(5))
	require.NoError(t, err)

	last := f.ledger.AssetsPerShare()
	step := func(name string, op func() error) {
		t.Helper()
		require.NoError(t, op(), name)
		current := f.ledger.AssetsPerShare()
		require.True(t, current.GTE(last), "%s dropped assets-per-share from %s to %s", name, last, current)
		last = current
	}

	step("deposit alice", func() error {
		_, err := f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(37))
		return err
	})
	step("compound", func() error {
		return f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(11))
	})
	step("deposit bob", func() error {
		_, err := f.ledger.VaultDeposit(ctx, bob, sdkmath.NewInt(13))
		return err
	})
	step("redeem alice", func() error {
		_, err := f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(20))
		return err
	})
	step("compound again", func() error {
		return f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(7))
	})
	step("redeem bob", func() error {
		_, err := f.ledger.VaultRedeem(ctx, bob, sdkmath.NewInt(5))
		return err
	})
}

func TestVaultLiquidityCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(p *Params) {
		p.MaxLiquidityPercent = 25
	})

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(100))
	require.NoError(t, err)
	_, err = f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	// ceiling is 25% of 200 = 50
	_, err = f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(60))
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))
	assert.Equal(t, sdkmath.NewInt(100), f.ledger.ShareBalance(alice))

	payout, err := f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(40))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(40), payout)

	// outstanding 40 of ceiling 40 (25% of 160): nothing more until settled
	_, err = f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(20))
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))

	require.NoError(t, f.ledger.SettleVaultRedemptions(sdkmath.NewInt(40)))
	_, err = f.ledger.VaultRedeem(ctx, alice, sdkmath.NewInt(20))
	require.NoError(t, err)
}

func TestVaultShareTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(1))
	require.NoError(t, err)
	_, err = f.ledger.VaultDeposit(ctx, alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	require.NoError(t, f.ledger.TransferShares(alice, bob, sdkmath.NewInt(30)))
	assert.Equal(t, sdkmath.NewInt(70), f.ledger.ShareBalance(alice))
	assert.Equal(t, sdkmath.NewInt(30), f.ledger.ShareBalance(bob))

	err = f.ledger.TransferShares(alice, bob, sdkmath.NewInt(100))
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	err = f.ledger.TransferShares(alice, alice, sdkmath.NewInt(1))
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
}

func TestVaultEmptyInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ledger.SeedVault(ctx, seeder, sdkmath.NewInt(7))
	require.NoError(t, err)
	require.NoError(t, f.ledger.CompoundVaultRewards(ctx, seeder, sdkmath.NewInt(3)))

	// Burning the last shares drains assets completely, restoring
	// totalShares == 0 <=> totalAssets == 0.
	payout, err := f.ledger.VaultRedeem(ctx, seeder, sdkmath.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10), payout)

	totalAssets, totalShares := f.ledger.VaultTotals()
	assert.True(t, totalAssets.IsZero())
	assert.True(t, totalShares.IsZero())
}
