package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

type VaultConfig struct {
	// MaxLiquidityPercent caps the fraction of vault assets that may be
	// mid-redemption at once, in whole percent (1..100).
	MaxLiquidityPercent uint64 `mapstructure:"max-liquidity-percent"`
	// SeedAmount is the privileged first deposit establishing the initial
	// share price, as a decimal string in base units.
	SeedAmount string `mapstructure:"seed-amount"`
}

func (cfg *VaultConfig) Validate() error {
	if cfg.MaxLiquidityPercent == 0 || cfg.MaxLiquidityPercent > 100 {
		return errors.New("vault max-liquidity-percent must be in (0, 100]")
	}
	seed, ok := sdkmath.NewIntFromString(cfg.SeedAmount)
	if !ok {
		return fmt.Errorf("vault seed-amount %q is not a valid integer", cfg.SeedAmount)
	}
	if !seed.IsPositive() {
		return errors.New("vault seed-amount must be positive")
	}
	return nil
}

// Seed returns the parsed seed amount. Validate must have succeeded.
func (cfg *VaultConfig) Seed() sdkmath.Int {
	seed, _ := sdkmath.NewIntFromString(cfg.SeedAmount)
	return seed
}
