package oracle

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
)

// PriceReading is a raw price quote in source precision (8 fractional
// digits) with the timestamp the source produced it.
type PriceReading struct {
	Price     sdkmath.Int
	Timestamp time.Time
}

// RateReading is an APR or APY quote, e.g. 0.05 for 5%.
type RateReading struct {
	Rate      sdkmath.LegacyDec
	Timestamp time.Time
}

// DurationReading carries the unbonding period currently in force.
type DurationReading struct {
	Period    time.Duration
	Timestamp time.Time
}

// RewardsReading reports the rewards paid over the trailing rewards period.
type RewardsReading struct {
	Amount    sdkmath.Int
	Period    time.Duration
	Timestamp time.Time
}

// Source is a single oracle data source. Implementations must attach the
// source-side timestamp to every reading; the adapter decides freshness.
type Source interface {
	Name() string
	GetPrice(ctx context.Context, asset string) (*PriceReading, error)
	GetCurrentAPR(ctx context.Context) (*RateReading, error)
	GetCurrentAPY(ctx context.Context) (*RateReading, error)
	GetUnbondingPeriod(ctx context.Context) (*DurationReading, error)
	GetRewards(ctx context.Context) (*RewardsReading, error)
	GetLaunchTimestamp(ctx context.Context) (time.Time, error)
}
