package delegationclient

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
)

type delegationClientWithMetrics struct {
	delegation DelegationInterface
}

func NewDelegationClientWithMetrics(delegation DelegationInterface) *delegationClientWithMetrics {
	return &delegationClientWithMetrics{delegation: delegation}
}

func (d *delegationClientWithMetrics) Stake(ctx context.Context, user string, amount sdkmath.Int, validator string) error {
	type zero struct{}
	_, err := runDelegationClientMethodWithMetrics("Stake", func() (zero, error) {
		return zero{}, d.delegation.Stake(ctx, user, amount, validator)
	})
	return err
}

func (d *delegationClientWithMetrics) Unstake(ctx context.Context, user string, amount sdkmath.Int, validator string) (string, error) {
	return runDelegationClientMethodWithMetrics("Unstake", func() (string, error) {
		return d.delegation.Unstake(ctx, user, amount, validator)
	})
}

func (d *delegationClientWithMetrics) ClaimUnstake(ctx context.Context, user, correlationID string) (sdkmath.Int, error) {
	return runDelegationClientMethodWithMetrics("ClaimUnstake", func() (sdkmath.Int, error) {
		return d.delegation.ClaimUnstake(ctx, user, correlationID)
	})
}

func (d *delegationClientWithMetrics) GetTotalStake(ctx context.Context, user string) (sdkmath.Int, error) {
	return runDelegationClientMethodWithMetrics("GetTotalStake", func() (sdkmath.Int, error) {
		return d.delegation.GetTotalStake(ctx, user)
	})
}

func (d *delegationClientWithMetrics) GetPendingRewards(ctx context.Context, user string) (sdkmath.Int, error) {
	return runDelegationClientMethodWithMetrics("GetPendingRewards", func() (sdkmath.Int, error) {
		return d.delegation.GetPendingRewards(ctx, user)
	})
}

func (d *delegationClientWithMetrics) GetUnstakeRequest(ctx context.Context, correlationID string) (*ledger.UnstakeRequestInfo, error) {
	return runDelegationClientMethodWithMetrics("GetUnstakeRequest", func() (*ledger.UnstakeRequestInfo, error) {
		return d.delegation.GetUnstakeRequest(ctx, correlationID)
	})
}

func runDelegationClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	outcome := metrics.Success
	if err != nil {
		outcome = metrics.Error
	}
	metrics.ObserveClientLatency("delegation", method, outcome, duration)
	return v, err
}
