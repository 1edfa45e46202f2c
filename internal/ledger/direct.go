package ledger

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/types"
)

// StakeResult reports a completed direct stake. Reported is the stake
// expressed in the report asset; it falls back to the staked amount when the
// conversion is unavailable.
type StakeResult struct {
	Amount    sdkmath.Int
	Validator string
	Reported  sdkmath.Int
}

// UnstakeResult carries the delegation layer's correlation id and the
// informational unbonding end snapshot.
type UnstakeResult struct {
	CorrelationID string
	UnbondingEnd  time.Time
}

// ClaimUnstakeResult reports a completed unstake payout. Validator is
// best-effort metadata and may be the unknown sentinel.
type ClaimUnstakeResult struct {
	Amount    sdkmath.Int
	Validator string
}

// StakeAPR stakes synchronously: funds are pulled (or wrapped from native
// value) into custody and delegated in one operation.
func (l *Ledger) StakeAPR(
	ctx context.Context, user string, amount sdkmath.Int, validator string, native bool,
) (StakeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validateModeAndValidator(types.ModeAPR, validator); err != nil {
		return StakeResult{}, err
	}
	if err := l.validateAmount(amount); err != nil {
		return StakeResult{}, err
	}

	if native {
		if err := l.token.Deposit(ctx, user, amount); err != nil {
			return StakeResult{}, types.NewExternalEffectError(
				fmt.Errorf("failed to wrap native value: %w", err),
			)
		}
	} else {
		if err := l.token.TransferFrom(ctx, user, l.params.CustodyAccount, amount); err != nil {
			return StakeResult{}, types.NewExternalEffectError(
				fmt.Errorf("failed to pull %s into custody: %w", amount, err),
			)
		}
	}

	if err := l.delegation.Stake(ctx, user, amount, validator); err != nil {
		// The stake did not happen; return the pulled funds.
		l.refund(ctx, user, amount)
		return StakeResult{}, types.NewExternalEffectError(
			fmt.Errorf("delegation stake failed: %w", err),
		)
	}

	// The report-asset figure is informational; a failed conversion falls
	// back to a 1:1 passthrough instead of blocking the stake.
	reported, err := l.oracle.ConvertAmount(ctx, amount, l.params.NativeAsset, l.params.ReportAsset)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("conversion unavailable, reporting staked amount 1:1")
		reported = amount
	}

	return StakeResult{Amount: amount, Validator: validator, Reported: reported}, nil
}

// UnstakeAPR forwards an unstake instruction to the delegation layer. The
// unbonding end is computed from the current oracle period and is not
// re-validated later.
func (l *Ledger) UnstakeAPR(
	ctx context.Context, user string, amount sdkmath.Int, validator string,
) (UnstakeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireThawed(); err != nil {
		return UnstakeResult{}, err
	}
	if err := l.validateModeAndValidator(types.ModeAPR, validator); err != nil {
		return UnstakeResult{}, err
	}
	if err := l.validateAmount(amount); err != nil {
		return UnstakeResult{}, err
	}

	correlationID, err := l.delegation.Unstake(ctx, user, amount, validator)
	if err != nil {
		return UnstakeResult{}, types.NewExternalEffectError(
			fmt.Errorf("delegation unstake failed: %w", err),
		)
	}

	result := UnstakeResult{CorrelationID: correlationID}
	if period, oerr := l.oracle.GetUnbondingPeriod(ctx); oerr != nil {
		log.Ctx(ctx).Warn().Err(oerr).Msg("failed to snapshot unbonding period")
	} else {
		result.UnbondingEnd = l.now().Add(period)
	}

	return result, nil
}

// ClaimUnstakeAPR claims a matured unstake from the delegation layer and
// pays the user out of custody.
func (l *Ledger) ClaimUnstakeAPR(
	ctx context.Context, user, correlationID string,
) (ClaimUnstakeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if correlationID == "" {
		return ClaimUnstakeResult{}, types.NewValidationError(fmt.Errorf("correlation id is required"))
	}

	amount, err := l.delegation.ClaimUnstake(ctx, user, correlationID)
	if err != nil {
		return ClaimUnstakeResult{}, types.NewExternalEffectError(
			fmt.Errorf("delegation claim failed for %s: %w", correlationID, err),
		)
	}

	// Validator-of-record is cosmetic; a failed lookup must not block the
	// payout.
	validator := UnknownValidator
	if info, lerr := l.delegation.GetUnstakeRequest(ctx, correlationID); lerr == nil && info != nil && info.Validator != "" {
		validator = info.Validator
	}

	if err := l.requireCustodyCovers(ctx, amount); err != nil {
		return ClaimUnstakeResult{}, err
	}
	if err := l.token.Transfer(ctx, user, amount); err != nil {
		return ClaimUnstakeResult{}, types.NewExternalEffectError(
			fmt.Errorf("unstake payout failed for %s: %w", correlationID, err),
		)
	}

	return ClaimUnstakeResult{Amount: amount, Validator: validator}, nil
}

// ClaimRewardsAPR pays out the user's whole claimable reward balance. The
// balance is cleared before the payout call.
func (l *Ledger) ClaimRewardsAPR(ctx context.Context, user string) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	claimable := l.rewards.Claimable(user)
	if claimable.IsZero() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("no rewards available"))
	}
	if l.params.EnforceMinimums && claimable.LT(l.params.MinRewardClaim) {
		return sdkmath.Int{}, types.NewValidationError(
			fmt.Errorf("claimable %s is below minimum claim %s", claimable, l.params.MinRewardClaim),
		)
	}
	if err := l.requireCustodyCovers(ctx, claimable); err != nil {
		return sdkmath.Int{}, err
	}

	snap := l.snapshot()
	l.rewards.Clear(user)

	if err := l.token.Transfer(ctx, user, claimable); err != nil {
		l.restore(snap)
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("reward payout failed: %w", err),
		)
	}

	return claimable, nil
}

// ClaimRewardsAPRForValidator pays out part of the user's claimable balance
// attributed to one validator.
func (l *Ledger) ClaimRewardsAPRForValidator(
	ctx context.Context, user, validator string, amount sdkmath.Int,
) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if validator == "" {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("validator is required"))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("amount must be positive"))
	}
	claimable := l.rewards.ClaimableForValidator(user, validator)
	if claimable.IsZero() {
		return sdkmath.Int{}, types.NewValidationError(fmt.Errorf("no rewards available"))
	}
	if l.params.EnforceMinimums && amount.LT(l.params.MinRewardClaim) {
		return sdkmath.Int{}, types.NewValidationError(
			fmt.Errorf("claim %s is below minimum claim %s", amount, l.params.MinRewardClaim),
		)
	}
	if err := l.requireCustodyCovers(ctx, amount); err != nil {
		return sdkmath.Int{}, err
	}

	snap := l.snapshot()
	if err := l.rewards.Decrease(user, validator, amount); err != nil {
		l.restore(snap)
		return sdkmath.Int{}, err
	}

	if err := l.token.Transfer(ctx, user, amount); err != nil {
		l.restore(snap)
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("reward payout failed: %w", err),
		)
	}

	return amount, nil
}
