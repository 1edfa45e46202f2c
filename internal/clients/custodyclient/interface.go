package custodyclient

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

type CustodyInterface interface {
	BalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
	Transfer(ctx context.Context, to string, amount sdkmath.Int) error
	TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error
	Deposit(ctx context.Context, from string, amount sdkmath.Int) error
	Withdraw(ctx context.Context, to string, amount sdkmath.Int) error
}

var _ CustodyInterface = (*Client)(nil)
var _ CustodyInterface = (*custodyClientWithMetrics)(nil)
