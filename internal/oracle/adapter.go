package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/observability/metrics"
	"github.com/nativestake/custody-ledger/internal/types"
)

const (
	// Source precision is 8 fractional digits, internal precision is 18.
	sourceDecimals   = 8
	internalDecimals = 18
)

// priceScalingFactor lifts a source-precision price to internal precision.
var priceScalingFactor = sdkmath.NewIntWithDecimal(1, internalDecimals-sourceDecimals)

var errNoFreshData = errors.New("no fresh oracle data from primary or fallback source")

// Adapter serves staleness-checked oracle reads from a primary source with
// an optional fallback, and owns the reward ledger fed by the reward
// updater. All prices leaving the adapter carry internal precision.
type Adapter struct {
	primary      Source
	fallback     Source
	maxStaleness time.Duration
	rewards      *RewardLedger
	now          func() time.Time
}

type AdapterOption func(*Adapter)

// WithFallback attaches a fallback source tried when the primary reading is
// stale or unreachable.
func WithFallback(fallback Source) AdapterOption {
	return func(a *Adapter) {
		a.fallback = fallback
	}
}

// WithClock overrides the freshness clock.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

func NewAdapter(primary Source, maxStaleness time.Duration, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		primary:      primary,
		maxStaleness: maxStaleness,
		rewards:      NewRewardLedger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rewards exposes the reward ledger, the single source of truth for
// claimable APR-mode rewards.
func (a *Adapter) Rewards() *RewardLedger {
	return a.rewards
}

func (a *Adapter) isFreshAt(ts time.Time) bool {
	return a.now().Sub(ts) <= a.maxStaleness
}

// read tries the primary source, then the fallback, accepting the first
// reading whose timestamp is inside the staleness window. The returned error
// is always an OracleError.
func read[T any](
	ctx context.Context, a *Adapter, method string,
	fetch func(ctx context.Context, s Source) (*T, time.Time, error),
) (*T, error) {
	reading, ts, err := fetch(ctx, a.primary)
	if err == nil && a.isFreshAt(ts) {
		return reading, nil
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("source", a.primary.Name()).
			Str("method", method).
			Msg("primary oracle source unreachable")
	}

	if a.fallback != nil {
		reading, ts, err = fetch(ctx, a.fallback)
		if err == nil && a.isFreshAt(ts) {
			metrics.RecordOracleFallbackHit()
			return reading, nil
		}
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("source", a.fallback.Name()).
				Str("method", method).
				Msg("fallback oracle source unreachable")
		}
	}

	return nil, types.NewOracleError(fmt.Errorf("%s: %w", method, errNoFreshData))
}

// GetPrice returns the asset price in internal precision.
func (a *Adapter) GetPrice(ctx context.Context, asset string) (sdkmath.Int, error) {
	reading, err := read(ctx, a, "GetPrice", func(ctx context.Context, s Source) (*PriceReading, time.Time, error) {
		r, err := s.GetPrice(ctx, asset)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, r.Timestamp, nil
	})
	if err != nil {
		return sdkmath.Int{}, err
	}
	return reading.Price.Mul(priceScalingFactor), nil
}

func (a *Adapter) GetCurrentAPR(ctx context.Context) (sdkmath.LegacyDec, error) {
	reading, err := read(ctx, a, "GetCurrentAPR", func(ctx context.Context, s Source) (*RateReading, time.Time, error) {
		r, err := s.GetCurrentAPR(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, r.Timestamp, nil
	})
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return reading.Rate, nil
}

func (a *Adapter) GetCurrentAPY(ctx context.Context) (sdkmath.LegacyDec, error) {
	reading, err := read(ctx, a, "GetCurrentAPY", func(ctx context.Context, s Source) (*RateReading, time.Time, error) {
		r, err := s.GetCurrentAPY(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, r.Timestamp, nil
	})
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return reading.Rate, nil
}

func (a *Adapter) GetUnbondingPeriod(ctx context.Context) (time.Duration, error) {
	reading, err := read(ctx, a, "GetUnbondingPeriod", func(ctx context.Context, s Source) (*DurationReading, time.Time, error) {
		r, err := s.GetUnbondingPeriod(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, r.Timestamp, nil
	})
	if err != nil {
		return 0, err
	}
	return reading.Period, nil
}

func (a *Adapter) GetRewards(ctx context.Context) (*RewardsReading, error) {
	return read(ctx, a, "GetRewards", func(ctx context.Context, s Source) (*RewardsReading, time.Time, error) {
		r, err := s.GetRewards(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, r.Timestamp, nil
	})
}

func (a *Adapter) GetLaunchTimestamp(ctx context.Context) (time.Time, error) {
	ts, err := a.primary.GetLaunchTimestamp(ctx)
	if err == nil {
		return ts, nil
	}
	if a.fallback != nil {
		if ts, err = a.fallback.GetLaunchTimestamp(ctx); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, types.NewOracleError(fmt.Errorf("GetLaunchTimestamp: %w", err))
}

// IsFresh is a read-only freshness probe. It reports whether any source can
// currently serve a fresh price for the asset; it never fails.
func (a *Adapter) IsFresh(ctx context.Context, asset string) bool {
	fresh := false
	if r, err := a.primary.GetPrice(ctx, asset); err == nil && a.isFreshAt(r.Timestamp) {
		fresh = true
	}
	metrics.RecordOracleFreshness(a.primary.Name(), fresh)
	if fresh {
		return true
	}

	if a.fallback == nil {
		return false
	}
	fallbackFresh := false
	if r, err := a.fallback.GetPrice(ctx, asset); err == nil && a.isFreshAt(r.Timestamp) {
		fallbackFresh = true
	}
	metrics.RecordOracleFreshness(a.fallback.Name(), fallbackFresh)
	return fallbackFresh
}

// ConvertAmount converts an amount of fromAsset into toAsset units using
// fresh prices, rounding down toward zero. A zero price on either side
// yields zero rather than a division fault.
func (a *Adapter) ConvertAmount(ctx context.Context, amount sdkmath.Int, fromAsset, toAsset string) (sdkmath.Int, error) {
	if fromAsset == toAsset {
		return amount, nil
	}
	fromPrice, err := a.GetPrice(ctx, fromAsset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	toPrice, err := a.GetPrice(ctx, toAsset)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if fromPrice.IsZero() || toPrice.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return amount.Mul(fromPrice).Quo(toPrice), nil
}
