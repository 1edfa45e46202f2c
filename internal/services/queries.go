package services

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/ledger"
)

// Read side. Queries skip the gate and the pause flag; reporting stays
// available while the ledger is paused.

func (s *Service) StakeRequest(id uint64) (ledger.StakeRequest, error) {
	return s.ledger.StakeRequestByID(id)
}

func (s *Service) UnstakeRequest(id uint64) (ledger.UnstakeRequest, error) {
	return s.ledger.UnstakeRequestByID(id)
}

func (s *Service) ClaimRequest(id uint64) (ledger.RewardClaimRequest, error) {
	return s.ledger.ClaimRequestByID(id)
}

func (s *Service) ClaimableRewards(user string) sdkmath.Int {
	return s.rewards.Claimable(user)
}

func (s *Service) ClaimableRewardsForValidator(user, validator string) sdkmath.Int {
	return s.rewards.ClaimableForValidator(user, validator)
}

func (s *Service) VaultStats() (totalAssets, totalShares sdkmath.Int, assetsPerShare sdkmath.LegacyDec) {
	totalAssets, totalShares = s.ledger.VaultTotals()
	return totalAssets, totalShares, s.ledger.AssetsPerShare()
}

func (s *Service) ShareBalance(holder string) sdkmath.Int {
	return s.ledger.ShareBalance(holder)
}

func (s *Service) FreezeStatus() ledger.FreezeWindow {
	return s.ledger.Freeze()
}

func (s *Service) Paused() bool {
	return s.gate.Paused()
}

// Oracle reads pass through the adapter's staleness and fallback rules.

func (s *Service) OraclePrice(ctx context.Context, asset string) (sdkmath.Int, error) {
	return s.oracle.GetPrice(ctx, asset)
}

func (s *Service) CurrentAPR(ctx context.Context) (sdkmath.LegacyDec, error) {
	return s.oracle.GetCurrentAPR(ctx)
}

func (s *Service) CurrentAPY(ctx context.Context) (sdkmath.LegacyDec, error) {
	return s.oracle.GetCurrentAPY(ctx)
}

func (s *Service) UnbondingPeriod(ctx context.Context) (time.Duration, error) {
	return s.oracle.GetUnbondingPeriod(ctx)
}
