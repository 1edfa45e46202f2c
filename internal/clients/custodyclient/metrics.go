package custodyclient

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/observability/metrics"
)

type custodyClientWithMetrics struct {
	custody CustodyInterface
}

func NewCustodyClientWithMetrics(custody CustodyInterface) *custodyClientWithMetrics {
	return &custodyClientWithMetrics{custody: custody}
}

func (c *custodyClientWithMetrics) BalanceOf(ctx context.Context, account string) (sdkmath.Int, error) {
	return runCustodyClientMethodWithMetrics("BalanceOf", func() (sdkmath.Int, error) {
		return c.custody.BalanceOf(ctx, account)
	})
}

func (c *custodyClientWithMetrics) Transfer(ctx context.Context, to string, amount sdkmath.Int) error {
	type zero struct{}
	_, err := runCustodyClientMethodWithMetrics("Transfer", func() (zero, error) {
		return zero{}, c.custody.Transfer(ctx, to, amount)
	})
	return err
}

func (c *custodyClientWithMetrics) TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error {
	type zero struct{}
	_, err := runCustodyClientMethodWithMetrics("TransferFrom", func() (zero, error) {
		return zero{}, c.custody.TransferFrom(ctx, from, to, amount)
	})
	return err
}

func (c *custodyClientWithMetrics) Deposit(ctx context.Context, from string, amount sdkmath.Int) error {
	type zero struct{}
	_, err := runCustodyClientMethodWithMetrics("Deposit", func() (zero, error) {
		return zero{}, c.custody.Deposit(ctx, from, amount)
	})
	return err
}

func (c *custodyClientWithMetrics) Withdraw(ctx context.Context, to string, amount sdkmath.Int) error {
	type zero struct{}
	_, err := runCustodyClientMethodWithMetrics("Withdraw", func() (zero, error) {
		return zero{}, c.custody.Withdraw(ctx, to, amount)
	})
	return err
}

func runCustodyClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	outcome := metrics.Success
	if err != nil {
		outcome = metrics.Error
	}
	metrics.ObserveClientLatency("custody", method, outcome, duration)
	return v, err
}
