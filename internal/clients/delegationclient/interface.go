package delegationclient

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/ledger"
)

type DelegationInterface interface {
	Stake(ctx context.Context, user string, amount sdkmath.Int, validator string) error
	Unstake(ctx context.Context, user string, amount sdkmath.Int, validator string) (string, error)
	ClaimUnstake(ctx context.Context, user, correlationID string) (sdkmath.Int, error)
	GetTotalStake(ctx context.Context, user string) (sdkmath.Int, error)
	GetPendingRewards(ctx context.Context, user string) (sdkmath.Int, error)
	GetUnstakeRequest(ctx context.Context, correlationID string) (*ledger.UnstakeRequestInfo, error)
}

var _ DelegationInterface = (*Client)(nil)
var _ DelegationInterface = (*delegationClientWithMetrics)(nil)
