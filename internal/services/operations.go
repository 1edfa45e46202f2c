package services

import (
	"context"
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/access"
	"github.com/nativestake/custody-ledger/internal/db/model"
	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
	"github.com/nativestake/custody-ledger/internal/queue"
	"github.com/nativestake/custody-ledger/internal/types"
)

// Two-phase request side.

func (s *Service) RequestStake(
	ctx context.Context, principal string, amount sdkmath.Int, mode types.StakingMode, validator string,
) (ledger.StakeRequest, error) {
	return run(access.OpRequestStake, func() (ledger.StakeRequest, error) {
		if err := s.guard(principal, access.OpRequestStake); err != nil {
			return ledger.StakeRequest{}, err
		}
		req, err := s.ledger.RequestStake(ctx, principal, amount, mode, validator)
		if err != nil {
			return ledger.StakeRequest{}, err
		}

		s.journalErr(ctx, "stake_request", s.db.SaveStakeRequest(ctx, model.NewStakeRequestDocument(req)))
		s.publish(ctx, queue.Event{
			Type:      queue.EventStakeRequested,
			User:      req.User,
			Amount:    req.Amount.String(),
			Validator: req.Validator,
			Mode:      string(req.Mode),
			RequestID: &req.ID,
			Timestamp: req.Timestamp,
		})
		s.recordPending()
		return req, nil
	})
}

func (s *Service) RequestUnstake(
	ctx context.Context, principal string, amount sdkmath.Int, mode types.StakingMode, validator string,
) (ledger.UnstakeRequest, error) {
	return run(access.OpRequestUnstake, func() (ledger.UnstakeRequest, error) {
		if err := s.guard(principal, access.OpRequestUnstake); err != nil {
			return ledger.UnstakeRequest{}, err
		}
		req, err := s.ledger.RequestUnstake(ctx, principal, amount, mode, validator)
		if err != nil {
			return ledger.UnstakeRequest{}, err
		}

		s.journalErr(ctx, "unstake_request", s.db.SaveUnstakeRequest(ctx, model.NewUnstakeRequestDocument(req)))
		s.publish(ctx, queue.Event{
			Type:      queue.EventUnstakeRequested,
			User:      req.User,
			Amount:    req.Amount.String(),
			Validator: req.Validator,
			Mode:      string(req.Mode),
			RequestID: &req.ID,
			Timestamp: req.Timestamp,
		})
		s.recordPending()
		return req, nil
	})
}

func (s *Service) RequestClaimRewards(
	ctx context.Context, principal string, mode types.StakingMode,
) (ledger.RewardClaimRequest, error) {
	return run(access.OpRequestClaimRewards, func() (ledger.RewardClaimRequest, error) {
		if err := s.guard(principal, access.OpRequestClaimRewards); err != nil {
			return ledger.RewardClaimRequest{}, err
		}
		req, err := s.ledger.RequestClaimRewards(ctx, principal, mode)
		if err != nil {
			return ledger.RewardClaimRequest{}, err
		}

		s.journalErr(ctx, "claim_request", s.db.SaveRewardClaimRequest(ctx, model.NewRewardClaimRequestDocument(req)))
		s.publish(ctx, queue.Event{
			Type:      queue.EventClaimRequested,
			User:      req.User,
			Mode:      string(req.Mode),
			RequestID: &req.ID,
			Timestamp: req.Timestamp,
		})
		s.recordPending()
		return req, nil
	})
}

// Fulfillment side.

func (s *Service) FulfillStake(ctx context.Context, principal string, id uint64) (ledger.StakeRequest, error) {
	return run(access.OpFulfillStake, func() (ledger.StakeRequest, error) {
		if err := s.guard(principal, access.OpFulfillStake); err != nil {
			return ledger.StakeRequest{}, err
		}
		req, err := s.ledger.FulfillStake(ctx, id, func(ctx context.Context) error {
			return s.db.MarkStakeRequestProcessed(ctx, id)
		})
		if err != nil {
			metrics.RecordFulfillment("stake", metrics.Error)
			return ledger.StakeRequest{}, err
		}
		metrics.RecordFulfillment("stake", metrics.Success)

		if req.Mode == types.ModeAPY {
			s.persistVault(ctx)
		}
		s.publish(ctx, queue.Event{
			Type:      queue.EventStakeFulfilled,
			User:      req.User,
			Amount:    req.Amount.String(),
			Validator: req.Validator,
			Mode:      string(req.Mode),
			RequestID: &req.ID,
		})
		s.recordPending()
		return req, nil
	})
}

func (s *Service) FulfillUnstake(ctx context.Context, principal string, id uint64) (ledger.UnstakeRequest, error) {
	return run(access.OpFulfillUnstake, func() (ledger.UnstakeRequest, error) {
		if err := s.guard(principal, access.OpFulfillUnstake); err != nil {
			return ledger.UnstakeRequest{}, err
		}
		req, err := s.ledger.FulfillUnstake(ctx, id, func(ctx context.Context) error {
			return s.db.MarkUnstakeRequestProcessed(ctx, id, "")
		})
		if err != nil {
			metrics.RecordFulfillment("unstake", metrics.Error)
			return ledger.UnstakeRequest{}, err
		}
		metrics.RecordFulfillment("unstake", metrics.Success)

		// The correlation id is only known after the delegation call; filling
		// it in is best effort on top of the already durable mark.
		s.journalErr(ctx, "unstake_request",
			s.db.MarkUnstakeRequestProcessed(ctx, id, req.CorrelationID))
		if req.Mode == types.ModeAPY {
			s.persistVault(ctx)
		}
		s.publish(ctx, queue.Event{
			Type:          queue.EventUnstakeFulfilled,
			User:          req.User,
			Amount:        req.Amount.String(),
			Validator:     req.Validator,
			Mode:          string(req.Mode),
			RequestID:     &req.ID,
			CorrelationID: req.CorrelationID,
		})
		s.recordPending()
		return req, nil
	})
}

func (s *Service) FulfillClaimRewards(ctx context.Context, principal string, id uint64) (ledger.RewardClaimRequest, error) {
	return run(access.OpFulfillClaimRewards, func() (ledger.RewardClaimRequest, error) {
		if err := s.guard(principal, access.OpFulfillClaimRewards); err != nil {
			return ledger.RewardClaimRequest{}, err
		}
		req, err := s.ledger.FulfillClaimRewards(ctx, id, func(ctx context.Context) error {
			return s.db.MarkRewardClaimRequestProcessed(ctx, id, "")
		})
		if err != nil {
			metrics.RecordFulfillment("claim", metrics.Error)
			return ledger.RewardClaimRequest{}, err
		}
		metrics.RecordFulfillment("claim", metrics.Success)

		s.journalErr(ctx, "claim_request",
			s.db.MarkRewardClaimRequestProcessed(ctx, id, req.Amount.String()))
		s.persistRewards(ctx, req.User)
		s.publish(ctx, queue.Event{
			Type:      queue.EventClaimFulfilled,
			User:      req.User,
			Amount:    req.Amount.String(),
			Mode:      string(req.Mode),
			RequestID: &req.ID,
		})
		s.recordPending()
		return req, nil
	})
}

// Direct APR path.

func (s *Service) StakeAPR(
	ctx context.Context, principal string, amount sdkmath.Int, validator string, native bool,
) (ledger.StakeResult, error) {
	return run(access.OpStakeAPR, func() (ledger.StakeResult, error) {
		if err := s.guard(principal, access.OpStakeAPR); err != nil {
			return ledger.StakeResult{}, err
		}
		result, err := s.ledger.StakeAPR(ctx, principal, amount, validator, native)
		if err != nil {
			return ledger.StakeResult{}, err
		}
		s.publish(ctx, queue.Event{
			Type:      queue.EventDirectStake,
			User:      principal,
			Amount:    result.Amount.String(),
			Validator: result.Validator,
		})
		return result, nil
	})
}

func (s *Service) UnstakeAPR(
	ctx context.Context, principal string, amount sdkmath.Int, validator string,
) (ledger.UnstakeResult, error) {
	return run(access.OpUnstakeAPR, func() (ledger.UnstakeResult, error) {
		if err := s.guard(principal, access.OpUnstakeAPR); err != nil {
			return ledger.UnstakeResult{}, err
		}
		result, err := s.ledger.UnstakeAPR(ctx, principal, amount, validator)
		if err != nil {
			return ledger.UnstakeResult{}, err
		}
		s.publish(ctx, queue.Event{
			Type:          queue.EventDirectUnstake,
			User:          principal,
			Amount:        amount.String(),
			Validator:     validator,
			CorrelationID: result.CorrelationID,
		})
		return result, nil
	})
}

func (s *Service) ClaimUnstakeAPR(
	ctx context.Context, principal, correlationID string,
) (ledger.ClaimUnstakeResult, error) {
	return run(access.OpClaimUnstakeAPR, func() (ledger.ClaimUnstakeResult, error) {
		if err := s.guard(principal, access.OpClaimUnstakeAPR); err != nil {
			return ledger.ClaimUnstakeResult{}, err
		}
		result, err := s.ledger.ClaimUnstakeAPR(ctx, principal, correlationID)
		if err != nil {
			return ledger.ClaimUnstakeResult{}, err
		}
		s.publish(ctx, queue.Event{
			Type:          queue.EventUnstakeClaimed,
			User:          principal,
			Amount:        result.Amount.String(),
			Validator:     result.Validator,
			CorrelationID: correlationID,
		})
		return result, nil
	})
}

func (s *Service) ClaimRewardsAPR(ctx context.Context, principal string) (sdkmath.Int, error) {
	return run(access.OpClaimRewardsAPR, func() (sdkmath.Int, error) {
		if err := s.guard(principal, access.OpClaimRewardsAPR); err != nil {
			return sdkmath.Int{}, err
		}
		paid, err := s.ledger.ClaimRewardsAPR(ctx, principal)
		if err != nil {
			return sdkmath.Int{}, err
		}
		s.persistRewards(ctx, principal)
		s.publish(ctx, queue.Event{
			Type:   queue.EventRewardsClaimed,
			User:   principal,
			Amount: paid.String(),
		})
		return paid, nil
	})
}

func (s *Service) ClaimRewardsAPRForValidator(
	ctx context.Context, principal, validator string, amount sdkmath.Int,
) (sdkmath.Int, error) {
	return run(access.OpClaimRewardsAPR, func() (sdkmath.Int, error) {
		if err := s.guard(principal, access.OpClaimRewardsAPR); err != nil {
			return sdkmath.Int{}, err
		}
		paid, err := s.ledger.ClaimRewardsAPRForValidator(ctx, principal, validator, amount)
		if err != nil {
			return sdkmath.Int{}, err
		}
		s.persistRewards(ctx, principal)
		s.publish(ctx, queue.Event{
			Type:      queue.EventRewardsClaimed,
			User:      principal,
			Amount:    paid.String(),
			Validator: validator,
		})
		return paid, nil
	})
}

// Vault operations.

func (s *Service) SeedVault(ctx context.Context, principal string, amount sdkmath.Int) (sdkmath.Int, error) {
	return run(access.OpSeedVault, func() (sdkmath.Int, error) {
		if err := s.guard(principal, access.OpSeedVault); err != nil {
			return sdkmath.Int{}, err
		}
		minted, err := s.ledger.SeedVault(ctx, principal, amount)
		if err != nil {
			return sdkmath.Int{}, err
		}
		s.persistVault(ctx)
		return minted, nil
	})
}

func (s *Service) VaultDeposit(ctx context.Context, principal string, amount sdkmath.Int) (sdkmath.Int, error) {
	return run(access.OpDeposit, func() (sdkmath.Int, error) {
		if err := s.guard(principal, access.OpDeposit); err != nil {
			return sdkmath.Int{}, err
		}
		shares, err := s.ledger.VaultDeposit(ctx, principal, amount)
		if err != nil {
			return sdkmath.Int{}, err
		}
		s.persistVault(ctx)
		s.publish(ctx, queue.Event{
			Type:   queue.EventVaultDeposit,
			User:   principal,
			Amount: amount.String(),
		})
		return shares, nil
	})
}

func (s *Service) VaultRedeem(ctx context.Context, principal string, shares sdkmath.Int) (sdkmath.Int, error) {
	return run(access.OpRedeem, func() (sdkmath.Int, error) {
		if err := s.guard(principal, access.OpRedeem); err != nil {
			return sdkmath.Int{}, err
		}
		payout, err := s.ledger.VaultRedeem(ctx, principal, shares)
		if err != nil {
			return sdkmath.Int{}, err
		}
		s.persistVault(ctx)
		s.publish(ctx, queue.Event{
			Type:   queue.EventVaultRedeem,
			User:   principal,
			Amount: payout.String(),
		})
		return payout, nil
	})
}

func (s *Service) CompoundVaultRewards(ctx context.Context, principal string, amount sdkmath.Int) error {
	_, err := run(access.OpCompoundRewards, func() (struct{}, error) {
		if err := s.guard(principal, access.OpCompoundRewards); err != nil {
			return struct{}{}, err
		}
		if err := s.ledger.CompoundVaultRewards(ctx, principal, amount); err != nil {
			return struct{}{}, err
		}
		s.persistVault(ctx)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) SettleVaultRedemptions(ctx context.Context, principal string, amount sdkmath.Int) error {
	_, err := run(access.OpSettleRedemptions, func() (struct{}, error) {
		if err := s.authorize(principal, access.OpSettleRedemptions); err != nil {
			return struct{}{}, err
		}
		if err := s.ledger.SettleVaultRedemptions(amount); err != nil {
			return struct{}{}, err
		}
		s.persistVault(ctx)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) TransferShares(ctx context.Context, principal, to string, shares sdkmath.Int) error {
	_, err := run(access.OpTransferShares, func() (struct{}, error) {
		if err := s.guard(principal, access.OpTransferShares); err != nil {
			return struct{}{}, err
		}
		if err := s.ledger.TransferShares(principal, to, shares); err != nil {
			return struct{}{}, err
		}
		s.persistVault(ctx)
		return struct{}{}, nil
	})
	return err
}

// Control plane. These skip the pause flag so an operator can always act.

func (s *Service) SetFreeze(ctx context.Context, principal string, duration time.Duration) (ledger.FreezeWindow, error) {
	return run(access.OpSetFreeze, func() (ledger.FreezeWindow, error) {
		if err := s.authorize(principal, access.OpSetFreeze); err != nil {
			return ledger.FreezeWindow{}, err
		}
		window, err := s.ledger.SetFreeze(duration)
		if err != nil {
			return ledger.FreezeWindow{}, err
		}
		s.persistFreeze(ctx)
		return window, nil
	})
}

func (s *Service) Thaw(ctx context.Context, principal string) (ledger.FreezeWindow, error) {
	return run(access.OpThaw, func() (ledger.FreezeWindow, error) {
		if err := s.authorize(principal, access.OpThaw); err != nil {
			return ledger.FreezeWindow{}, err
		}
		window := s.ledger.Thaw()
		s.persistFreeze(ctx)
		return window, nil
	})
}

// UpdateRewards credits the claimable reward ledger from the privileged
// reward updater. An empty validator credits the unattributed global bucket.
func (s *Service) UpdateRewards(
	ctx context.Context, principal, user, validator string, amount sdkmath.Int,
) error {
	_, err := run(access.OpUpdateRewards, func() (struct{}, error) {
		if err := s.authorize(principal, access.OpUpdateRewards); err != nil {
			return struct{}{}, err
		}
		if amount.IsNil() || !amount.IsPositive() {
			return struct{}{}, types.NewValidationError(errors.New("amount must be positive"))
		}
		if validator == "" {
			s.rewards.Credit(user, amount)
		} else {
			s.rewards.CreditForValidator(user, validator, amount)
		}
		s.persistRewards(ctx, user)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) Pause(principal string) error {
	if err := s.authorize(principal, access.OpPause); err != nil {
		return err
	}
	s.gate.Pause()
	return nil
}

func (s *Service) Unpause(principal string) error {
	if err := s.authorize(principal, access.OpUnpause); err != nil {
		return err
	}
	s.gate.Unpause()
	return nil
}

func (s *Service) recordPending() {
	stake, unstake, claim := s.ledger.PendingCounts()
	metrics.RecordPendingRequests("stake", float64(stake))
	metrics.RecordPendingRequests("unstake", float64(unstake))
	metrics.RecordPendingRequests("claim", float64(claim))
}
