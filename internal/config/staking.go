package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

type StakingConfig struct {
	// EnforceMinimums toggles the minimum stake / minimum claim checks.
	EnforceMinimums bool   `mapstructure:"enforce-minimums"`
	MinStake        string `mapstructure:"min-stake"`
	MinRewardClaim  string `mapstructure:"min-reward-claim"`
}

func (cfg *StakingConfig) Validate() error {
	if !cfg.EnforceMinimums {
		return nil
	}
	minStake, ok := sdkmath.NewIntFromString(cfg.MinStake)
	if !ok {
		return fmt.Errorf("staking min-stake %q is not a valid integer", cfg.MinStake)
	}
	if minStake.IsNegative() {
		return errors.New("staking min-stake must not be negative")
	}
	minClaim, ok := sdkmath.NewIntFromString(cfg.MinRewardClaim)
	if !ok {
		return fmt.Errorf("staking min-reward-claim %q is not a valid integer", cfg.MinRewardClaim)
	}
	if minClaim.IsNegative() {
		return errors.New("staking min-reward-claim must not be negative")
	}
	return nil
}

func (cfg *StakingConfig) MinStakeAmount() sdkmath.Int {
	if !cfg.EnforceMinimums {
		return sdkmath.ZeroInt()
	}
	minStake, _ := sdkmath.NewIntFromString(cfg.MinStake)
	return minStake
}

func (cfg *StakingConfig) MinRewardClaimAmount() sdkmath.Int {
	if !cfg.EnforceMinimums {
		return sdkmath.ZeroInt()
	}
	minClaim, _ := sdkmath.NewIntFromString(cfg.MinRewardClaim)
	return minClaim
}
