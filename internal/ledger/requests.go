package ledger

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/types"
)

// StakeRequest is one entry of the append-only stake book. The slice index
// is the permanent id; entries are never removed.
type StakeRequest struct {
	ID        uint64
	User      string
	Amount    sdkmath.Int
	Mode      types.StakingMode
	Validator string
	Timestamp time.Time
	Processed bool
}

// UnstakeRequest is one entry of the append-only unstake book. UnbondingEnd
// is a snapshot of the oracle's unbonding period at request time; later
// oracle changes never alter it.
type UnstakeRequest struct {
	ID            uint64
	User          string
	Amount        sdkmath.Int
	Mode          types.StakingMode
	Validator     string
	Timestamp     time.Time
	UnbondingEnd  time.Time
	CorrelationID string
	Processed     bool
}

// RewardClaimRequest is one entry of the append-only claim book. Amount is
// resolved at fulfillment time.
type RewardClaimRequest struct {
	ID        uint64
	User      string
	Mode      types.StakingMode
	Timestamp time.Time
	Amount    sdkmath.Int
	Processed bool
}

func (l *Ledger) validateModeAndValidator(mode types.StakingMode, validator string) error {
	if err := mode.Validate(); err != nil {
		return types.NewValidationError(err)
	}
	if mode == types.ModeAPR && validator == "" {
		return types.NewValidationError(fmt.Errorf("APR mode requires a validator"))
	}
	return nil
}

// RequestStake pulls the amount into custody and appends a stake request.
func (l *Ledger) RequestStake(
	ctx context.Context, user string, amount sdkmath.Int, mode types.StakingMode, validator string,
) (StakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validateModeAndValidator(mode, validator); err != nil {
		return StakeRequest{}, err
	}
	if err := l.validateAmount(amount); err != nil {
		return StakeRequest{}, err
	}

	if err := l.token.TransferFrom(ctx, user, l.params.CustodyAccount, amount); err != nil {
		return StakeRequest{}, types.NewExternalEffectError(
			fmt.Errorf("failed to pull %s into custody: %w", amount, err),
		)
	}

	req := StakeRequest{
		ID:        uint64(len(l.stakeRequests)),
		User:      user,
		Amount:    amount,
		Mode:      mode,
		Validator: validator,
		Timestamp: l.now(),
	}
	l.stakeRequests = append(l.stakeRequests, req)
	return req, nil
}

// RequestUnstake appends an unstake request. No funds move until a fulfiller
// settles it.
func (l *Ledger) RequestUnstake(
	ctx context.Context, user string, amount sdkmath.Int, mode types.StakingMode, validator string,
) (UnstakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireThawed(); err != nil {
		return UnstakeRequest{}, err
	}
	if err := l.validateModeAndValidator(mode, validator); err != nil {
		return UnstakeRequest{}, err
	}
	if err := l.validateAmount(amount); err != nil {
		return UnstakeRequest{}, err
	}

	now := l.now()
	req := UnstakeRequest{
		ID:        uint64(len(l.unstakeRequests)),
		User:      user,
		Amount:    amount,
		Mode:      mode,
		Validator: validator,
		Timestamp: now,
	}
	// The unbonding end is informational; an unreachable oracle leaves it
	// unset rather than blocking the request.
	if period, err := l.oracle.GetUnbondingPeriod(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to snapshot unbonding period for unstake request")
	} else {
		req.UnbondingEnd = now.Add(period)
	}

	l.unstakeRequests = append(l.unstakeRequests, req)
	return req, nil
}

// RequestClaimRewards appends a reward claim request; the amount is resolved
// at fulfillment.
func (l *Ledger) RequestClaimRewards(
	ctx context.Context, user string, mode types.StakingMode,
) (RewardClaimRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := mode.Validate(); err != nil {
		return RewardClaimRequest{}, types.NewValidationError(err)
	}

	req := RewardClaimRequest{
		ID:        uint64(len(l.claimRequests)),
		User:      user,
		Mode:      mode,
		Timestamp: l.now(),
		Amount:    sdkmath.ZeroInt(),
	}
	l.claimRequests = append(l.claimRequests, req)
	return req, nil
}

// CommitFunc persists the processed mark for a request. Fulfillment runs it
// after the in-memory commit and before any external effect; a commit that
// cannot be persisted aborts the fulfillment with no funds moved.
type CommitFunc func(ctx context.Context) error

func (l *Ledger) commitProcessed(ctx context.Context, commit CommitFunc, snap *snapshot, what string, id uint64) error {
	if commit == nil {
		return nil
	}
	if err := commit(ctx); err != nil {
		l.restore(snap)
		return types.NewInternalError(
			fmt.Errorf("could not persist fulfillment of %s request %d: %w", what, id, err),
		)
	}
	return nil
}

// FulfillStake settles a stake request. The processed flag is committed, in
// memory and through the commit hook, before the delegation call so a
// reentrant fulfiller observes the request already settled.
func (l *Ledger) FulfillStake(ctx context.Context, id uint64, commit CommitFunc) (StakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id >= uint64(len(l.stakeRequests)) {
		return StakeRequest{}, types.NewValidationError(fmt.Errorf("stake request %d does not exist", id))
	}
	req := &l.stakeRequests[id]
	if req.Processed {
		return StakeRequest{}, types.NewStateError(fmt.Errorf("stake request %d is already processed", id))
	}

	snap := l.snapshot()
	req.Processed = true
	if err := l.commitProcessed(ctx, commit, snap, "stake", id); err != nil {
		return StakeRequest{}, err
	}

	switch req.Mode {
	case types.ModeAPR:
		if err := l.delegation.Stake(ctx, req.User, req.Amount, req.Validator); err != nil {
			l.restore(snap)
			return StakeRequest{}, types.NewExternalEffectError(
				fmt.Errorf("delegation stake failed for request %d: %w", id, err),
			)
		}
	case types.ModeAPY:
		if _, err := l.vault.Deposit(req.User, req.Amount); err != nil {
			l.restore(snap)
			return StakeRequest{}, err
		}
	}

	return l.stakeRequests[id], nil
}

// FulfillUnstake settles an unstake request: APR mode instructs the
// delegation layer, APY mode redeems vault shares and pays the user from
// custody.
func (l *Ledger) FulfillUnstake(ctx context.Context, id uint64, commit CommitFunc) (UnstakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id >= uint64(len(l.unstakeRequests)) {
		return UnstakeRequest{}, types.NewValidationError(fmt.Errorf("unstake request %d does not exist", id))
	}
	req := &l.unstakeRequests[id]
	if req.Processed {
		return UnstakeRequest{}, types.NewStateError(fmt.Errorf("unstake request %d is already processed", id))
	}

	snap := l.snapshot()
	req.Processed = true
	if err := l.commitProcessed(ctx, commit, snap, "unstake", id); err != nil {
		return UnstakeRequest{}, err
	}

	switch req.Mode {
	case types.ModeAPR:
		correlationID, err := l.delegation.Unstake(ctx, req.User, req.Amount, req.Validator)
		if err != nil {
			l.restore(snap)
			return UnstakeRequest{}, types.NewExternalEffectError(
				fmt.Errorf("delegation unstake failed for request %d: %w", id, err),
			)
		}
		req.CorrelationID = correlationID
	case types.ModeAPY:
		shares, err := l.vault.SharesForAssets(req.Amount)
		if err != nil {
			l.restore(snap)
			return UnstakeRequest{}, err
		}
		payout, err := l.vault.Redeem(req.User, shares)
		if err != nil {
			l.restore(snap)
			return UnstakeRequest{}, err
		}
		if err := l.requireCustodyCovers(ctx, payout); err != nil {
			l.restore(snap)
			return UnstakeRequest{}, err
		}
		if err := l.token.Transfer(ctx, req.User, payout); err != nil {
			l.restore(snap)
			return UnstakeRequest{}, types.NewExternalEffectError(
				fmt.Errorf("vault payout failed for request %d: %w", id, err),
			)
		}
	}

	return l.unstakeRequests[id], nil
}

// FulfillClaimRewards resolves the claimable amount, clears it, and pays the
// user. The reward balance is cleared before the payout call; a reentrant
// claim during the payout finds nothing left to claim.
func (l *Ledger) FulfillClaimRewards(ctx context.Context, id uint64, commit CommitFunc) (RewardClaimRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id >= uint64(len(l.claimRequests)) {
		return RewardClaimRequest{}, types.NewValidationError(fmt.Errorf("claim request %d does not exist", id))
	}
	req := &l.claimRequests[id]
	if req.Processed {
		return RewardClaimRequest{}, types.NewStateError(fmt.Errorf("claim request %d is already processed", id))
	}

	if req.Mode == types.ModeAPY {
		return RewardClaimRequest{}, types.NewValidationError(
			fmt.Errorf("APY-mode rewards auto-compound into the vault; nothing is claimable"),
		)
	}

	claimable := l.rewards.Claimable(req.User)
	if claimable.IsZero() {
		return RewardClaimRequest{}, types.NewValidationError(fmt.Errorf("no rewards available"))
	}
	if err := l.requireCustodyCovers(ctx, claimable); err != nil {
		return RewardClaimRequest{}, err
	}

	snap := l.snapshot()
	req.Processed = true
	req.Amount = claimable
	l.rewards.Clear(req.User)
	if err := l.commitProcessed(ctx, commit, snap, "claim", id); err != nil {
		return RewardClaimRequest{}, err
	}

	if err := l.token.Transfer(ctx, req.User, claimable); err != nil {
		l.restore(snap)
		return RewardClaimRequest{}, types.NewExternalEffectError(
			fmt.Errorf("reward payout failed for request %d: %w", id, err),
		)
	}

	return l.claimRequests[id], nil
}

// StakeRequestByID returns a copy of the request.
func (l *Ledger) StakeRequestByID(id uint64) (StakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id >= uint64(len(l.stakeRequests)) {
		return StakeRequest{}, types.NewValidationError(fmt.Errorf("stake request %d does not exist", id))
	}
	return l.stakeRequests[id], nil
}

// UnstakeRequestByID returns a copy of the request.
func (l *Ledger) UnstakeRequestByID(id uint64) (UnstakeRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id >= uint64(len(l.unstakeRequests)) {
		return UnstakeRequest{}, types.NewValidationError(fmt.Errorf("unstake request %d does not exist", id))
	}
	return l.unstakeRequests[id], nil
}

// ClaimRequestByID returns a copy of the request.
func (l *Ledger) ClaimRequestByID(id uint64) (RewardClaimRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id >= uint64(len(l.claimRequests)) {
		return RewardClaimRequest{}, types.NewValidationError(fmt.Errorf("claim request %d does not exist", id))
	}
	return l.claimRequests[id], nil
}
