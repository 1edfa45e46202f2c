package ledger

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/types"
)

// Vault is the APY-mode auto-compounding share pool. Shares are a
// proportional claim on total assets; every conversion rounds in the vault's
// favor so repeated small operations cannot drain it.
//
// Vault methods take no lock: all mutation happens under the owning Ledger's
// mutex.
type Vault struct {
	totalAssets sdkmath.Int
	totalShares sdkmath.Int
	shares      map[string]sdkmath.Int
	// outstandingRedemptions is the sum of payouts whose backing principal
	// has not yet been returned by the delegation layer.
	outstandingRedemptions sdkmath.Int
	maxLiquidityPercent    uint64
}

func NewVault(maxLiquidityPercent uint64) *Vault {
	return &Vault{
		totalAssets:            sdkmath.ZeroInt(),
		totalShares:            sdkmath.ZeroInt(),
		shares:                 make(map[string]sdkmath.Int),
		outstandingRedemptions: sdkmath.ZeroInt(),
		maxLiquidityPercent:    maxLiquidityPercent,
	}
}

// ceilDiv divides rounding away from zero for positive operands.
func ceilDiv(numerator, denominator sdkmath.Int) sdkmath.Int {
	return numerator.Add(denominator.SubRaw(1)).Quo(denominator)
}

// Seed establishes the initial share price with a privileged deposit. It is
// the only mint allowed on an empty vault; requiring it defends against
// first-depositor share-price manipulation.
func (v *Vault) Seed(holder string, amount sdkmath.Int) error {
	if !v.totalShares.IsZero() {
		return types.NewStateError(fmt.Errorf("vault is already seeded"))
	}
	if !amount.IsPositive() {
		return types.NewValidationError(fmt.Errorf("seed amount must be positive"))
	}
	v.totalAssets = amount
	v.totalShares = amount
	v.shares[holder] = amount
	return nil
}

// Deposit mints shares for the holder. The per-share cost rounds up against
// the depositor, protecting existing holders: the minted share count is the
// floor of amount * totalShares / totalAssets.
func (v *Vault) Deposit(holder string, amount sdkmath.Int) (sdkmath.Int, error) {
	if !amount.IsPositive() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("deposit amount must be positive"))
	}
	if v.totalShares.IsZero() {
		return sdkmath.Int{}, types.NewStateError(
			fmt.Errorf("vault requires a privileged seed deposit before accepting deposits"),
		)
	}
	minted := amount.Mul(v.totalShares).Quo(v.totalAssets)
	if minted.IsZero() {
		return sdkmath.Int{}, types.NewValidationError(
			fmt.Errorf("deposit %s is too small for the current share price", amount),
		)
	}
	v.totalAssets = v.totalAssets.Add(amount)
	v.totalShares = v.totalShares.Add(minted)
	v.shares[holder] = v.balanceOf(holder).Add(minted)
	return minted, nil
}

// CompoundRewards raises total assets without minting shares, which is what
// makes assets-per-share monotonically non-decreasing.
func (v *Vault) CompoundRewards(amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return types.NewValidationError(fmt.Errorf("compound amount must be positive"))
	}
	if v.totalShares.IsZero() {
		return types.NewStateError(fmt.Errorf("cannot compound rewards into an unseeded vault"))
	}
	v.totalAssets = v.totalAssets.Add(amount)
	return nil
}

// Redeem burns shares and returns the floor-rounded asset payout. The
// redemption is rejected if it would push total outstanding redemptions past
// the liquidity ceiling; the caller may retry once liquidity returns.
//
// Burning the last outstanding shares drains total assets completely so the
// empty vault returns to the seeded-deposit discipline.
func (v *Vault) Redeem(holder string, shares sdkmath.Int) (sdkmath.Int, error) {
	if !shares.IsPositive() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("share amount must be positive"))
	}
	balance := v.balanceOf(holder)
	if balance.LT(shares) {
		return sdkmath.Int{}, types.NewValidationError(
			fmt.Errorf("holder %s has %s shares, cannot redeem %s", holder, balance, shares),
		)
	}

	var assets sdkmath.Int
	if v.totalShares.Equal(shares) {
		assets = v.totalAssets
	} else {
		assets = shares.Mul(v.totalAssets).Quo(v.totalShares)
	}

	ceiling := v.totalAssets.MulRaw(int64(v.maxLiquidityPercent)).QuoRaw(100)
	if v.outstandingRedemptions.Add(assets).GT(ceiling) {
		return sdkmath.Int{}, types.NewStateError(
			fmt.Errorf("redemption of %s would exceed the liquidity ceiling %s (outstanding %s)",
				assets, ceiling, v.outstandingRedemptions),
		)
	}

	v.totalAssets = v.totalAssets.Sub(assets)
	v.totalShares = v.totalShares.Sub(shares)
	if balance.Equal(shares) {
		delete(v.shares, holder)
	} else {
		v.shares[holder] = balance.Sub(shares)
	}
	v.outstandingRedemptions = v.outstandingRedemptions.Add(assets)
	return assets, nil
}

// SettleRedemptions records principal returned by the delegation layer,
// lowering the outstanding redemption exposure.
func (v *Vault) SettleRedemptions(amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return types.NewValidationError(fmt.Errorf("settle amount must be positive"))
	}
	if v.outstandingRedemptions.LT(amount) {
		return types.NewValidationError(
			fmt.Errorf("outstanding redemptions %s below settle amount %s", v.outstandingRedemptions, amount),
		)
	}
	v.outstandingRedemptions = v.outstandingRedemptions.Sub(amount)
	return nil
}

// Transfer moves shares between holders.
func (v *Vault) Transfer(from, to string, shares sdkmath.Int) error {
	if !shares.IsPositive() {
		return types.NewValidationError(fmt.Errorf("share amount must be positive"))
	}
	balance := v.balanceOf(from)
	if balance.LT(shares) {
		return types.NewValidationError(
			fmt.Errorf("holder %s has %s shares, cannot transfer %s", from, balance, shares),
		)
	}
	if balance.Equal(shares) {
		delete(v.shares, from)
	} else {
		v.shares[from] = balance.Sub(shares)
	}
	v.shares[to] = v.balanceOf(to).Add(shares)
	return nil
}

func (v *Vault) balanceOf(holder string) sdkmath.Int {
	if s, ok := v.shares[holder]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

// BalanceOf returns the holder's share balance.
func (v *Vault) BalanceOf(holder string) sdkmath.Int {
	return v.balanceOf(holder)
}

// SharesForAssets converts an asset amount to the shares that must be burned
// to release it, rounded up in the vault's favor.
func (v *Vault) SharesForAssets(assets sdkmath.Int) (sdkmath.Int, error) {
	if v.totalAssets.IsZero() {
		return sdkmath.Int{}, types.NewStateError(fmt.Errorf("vault is empty"))
	}
	return ceilDiv(assets.Mul(v.totalShares), v.totalAssets), nil
}

// AssetsPerShare reports the current ratio for observability.
func (v *Vault) AssetsPerShare() sdkmath.LegacyDec {
	if v.totalShares.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	return sdkmath.LegacyNewDecFromInt(v.totalAssets).QuoInt(v.totalShares)
}

// vaultState is the deep copy used for all-or-nothing rollback.
type vaultState struct {
	totalAssets            sdkmath.Int
	totalShares            sdkmath.Int
	shares                 map[string]sdkmath.Int
	outstandingRedemptions sdkmath.Int
}

func (v *Vault) state() *vaultState {
	shares := make(map[string]sdkmath.Int, len(v.shares))
	for holder, s := range v.shares {
		shares[holder] = s
	}
	return &vaultState{
		totalAssets:            v.totalAssets,
		totalShares:            v.totalShares,
		shares:                 shares,
		outstandingRedemptions: v.outstandingRedemptions,
	}
}

func (v *Vault) restore(s *vaultState) {
	v.totalAssets = s.totalAssets
	v.totalShares = s.totalShares
	v.outstandingRedemptions = s.outstandingRedemptions
	v.shares = make(map[string]sdkmath.Int, len(s.shares))
	for holder, sh := range s.shares {
		v.shares[holder] = sh
	}
}
