package ledger

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/types"
)

// SeedVault performs the privileged first deposit establishing the initial
// share price.
func (l *Ledger) SeedVault(ctx context.Context, seeder string, amount sdkmath.Int) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.token.TransferFrom(ctx, seeder, l.params.CustodyAccount, amount); err != nil {
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("failed to pull seed deposit into custody: %w", err),
		)
	}
	if err := l.vault.Seed(seeder, amount); err != nil {
		l.refund(ctx, seeder, amount)
		return sdkmath.Int{}, err
	}
	return amount, nil
}

// VaultDeposit pulls the amount into custody and mints shares for the user.
func (l *Ledger) VaultDeposit(ctx context.Context, user string, amount sdkmath.Int) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("amount must be positive"))
	}

	if err := l.token.TransferFrom(ctx, user, l.params.CustodyAccount, amount); err != nil {
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("failed to pull deposit into custody: %w", err),
		)
	}
	shares, err := l.vault.Deposit(user, amount)
	if err != nil {
		l.refund(ctx, user, amount)
		return sdkmath.Int{}, err
	}
	return shares, nil
}

// VaultRedeem burns the user's shares and pays the floor-rounded asset
// amount from custody. The burn is committed before the payout call.
func (l *Ledger) VaultRedeem(ctx context.Context, user string, shares sdkmath.Int) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot()
	payout, err := l.vault.Redeem(user, shares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := l.requireCustodyCovers(ctx, payout); err != nil {
		l.restore(snap)
		return sdkmath.Int{}, err
	}
	if err := l.token.Transfer(ctx, user, payout); err != nil {
		l.restore(snap)
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("redemption payout failed: %w", err),
		)
	}
	return payout, nil
}

// CompoundVaultRewards pulls externally earned rewards into custody and
// raises total assets without minting shares.
func (l *Ledger) CompoundVaultRewards(ctx context.Context, funder string, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return types.NewValidationError(fmt.Errorf("amount must be positive"))
	}

	if err := l.token.TransferFrom(ctx, funder, l.params.CustodyAccount, amount); err != nil {
		return types.NewExternalEffectError(
			fmt.Errorf("failed to pull rewards into custody: %w", err),
		)
	}
	if err := l.vault.CompoundRewards(amount); err != nil {
		l.refund(ctx, funder, amount)
		return err
	}
	return nil
}

// SettleVaultRedemptions lowers the outstanding redemption exposure after
// the delegation layer returns principal.
func (l *Ledger) SettleVaultRedemptions(amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vault.SettleRedemptions(amount)
}

// TransferShares moves vault shares between holders.
func (l *Ledger) TransferShares(from, to string, shares sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if to == "" || from == to {
		return types.NewValidationError(fmt.Errorf("invalid share transfer destination"))
	}
	return l.vault.Transfer(from, to, shares)
}

// ShareBalance returns the holder's vault share balance.
func (l *Ledger) ShareBalance(holder string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vault.BalanceOf(holder)
}

// AssetsPerShare reports the current vault ratio.
func (l *Ledger) AssetsPerShare() sdkmath.LegacyDec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vault.AssetsPerShare()
}

// refund undoes a custody pull whose operation did not complete. A failed
// refund leaves funds parked in custody and is surfaced in the log.
func (l *Ledger) refund(ctx context.Context, user string, amount sdkmath.Int) {
	if err := l.token.Transfer(ctx, user, amount); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("user", user).
			Str("amount", amount.String()).
			Msg("failed to refund custody pull")
	}
}
