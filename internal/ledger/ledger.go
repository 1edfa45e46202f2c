package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/types"
)

// UnknownValidator is the sentinel used when a best-effort validator lookup
// fails. Metadata is cosmetic and must never block a payout.
const UnknownValidator = "unknown"

// UnstakeRequestInfo is validator-of-record metadata held by the delegation
// layer for a pending unstake.
type UnstakeRequestInfo struct {
	Validator string
	Amount    sdkmath.Int
}

// DelegationClient is the external validator-delegation layer. Stake is the
// single fund-moving call on the stake path: it pulls the delegated amount
// out of ledger custody itself.
type DelegationClient interface {
	Stake(ctx context.Context, user string, amount sdkmath.Int, validator string) error
	Unstake(ctx context.Context, user string, amount sdkmath.Int, validator string) (string, error)
	ClaimUnstake(ctx context.Context, user, correlationID string) (sdkmath.Int, error)
	GetTotalStake(ctx context.Context, user string) (sdkmath.Int, error)
	GetPendingRewards(ctx context.Context, user string) (sdkmath.Int, error)
	GetUnstakeRequest(ctx context.Context, correlationID string) (*UnstakeRequestInfo, error)
}

// CustodyToken is the value custody token collaborator.
type CustodyToken interface {
	BalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
	Transfer(ctx context.Context, to string, amount sdkmath.Int) error
	TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error
	Deposit(ctx context.Context, from string, amount sdkmath.Int) error
	Withdraw(ctx context.Context, to string, amount sdkmath.Int) error
}

// OracleAdapter is the slice of the oracle surface the settlement core
// consumes.
type OracleAdapter interface {
	GetPrice(ctx context.Context, asset string) (sdkmath.Int, error)
	GetUnbondingPeriod(ctx context.Context) (time.Duration, error)
	ConvertAmount(ctx context.Context, amount sdkmath.Int, fromAsset, toAsset string) (sdkmath.Int, error)
	IsFresh(ctx context.Context, asset string) bool
}

// Params are the static knobs of the settlement core.
type Params struct {
	CustodyAccount      string
	NativeAsset         string
	ReportAsset         string
	EnforceMinimums     bool
	MinStake            sdkmath.Int
	MinRewardClaim      sdkmath.Int
	MaxLiquidityPercent uint64
}

func (p Params) Validate() error {
	if p.CustodyAccount == "" {
		return fmt.Errorf("custody account is required")
	}
	if p.NativeAsset == "" || p.ReportAsset == "" {
		return fmt.Errorf("native and report assets are required")
	}
	if p.MaxLiquidityPercent == 0 || p.MaxLiquidityPercent > 100 {
		return fmt.Errorf("max liquidity percent must be in (0, 100]")
	}
	if p.EnforceMinimums && (p.MinStake.IsNil() || p.MinRewardClaim.IsNil()) {
		return fmt.Errorf("minimums are enforced but not set")
	}
	return nil
}

// Ledger is the settlement core: custody accounting, the three append-only
// request books, the direct APR path, the compounding vault and the freeze
// controller. Every public operation runs under one mutex; operations are
// all-or-nothing via state snapshots taken at entry.
type Ledger struct {
	mu sync.Mutex

	params     Params
	delegation DelegationClient
	token      CustodyToken
	oracle     OracleAdapter
	rewards    *oracle.RewardLedger
	now        func() time.Time

	stakeRequests   []StakeRequest
	unstakeRequests []UnstakeRequest
	claimRequests   []RewardClaimRequest
	vault           *Vault
	freeze          FreezeWindow
}

type Option func(*Ledger)

// WithClock overrides the ledger clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(
	params Params,
	delegation DelegationClient,
	token CustodyToken,
	oracleAdapter OracleAdapter,
	rewards *oracle.RewardLedger,
	opts ...Option,
) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		params:     params,
		delegation: delegation,
		token:      token,
		oracle:     oracleAdapter,
		rewards:    rewards,
		vault:      NewVault(params.MaxLiquidityPercent),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// snapshot captures every piece of mutable core state. Restore puts it back
// verbatim, which is what makes a failed operation all-or-nothing.
type snapshot struct {
	stakeRequests   []StakeRequest
	unstakeRequests []UnstakeRequest
	claimRequests   []RewardClaimRequest
	vault           *vaultState
	freeze          FreezeWindow
	rewards         *oracle.RewardSnapshot
}

func (l *Ledger) snapshot() *snapshot {
	return &snapshot{
		stakeRequests:   append([]StakeRequest(nil), l.stakeRequests...),
		unstakeRequests: append([]UnstakeRequest(nil), l.unstakeRequests...),
		claimRequests:   append([]RewardClaimRequest(nil), l.claimRequests...),
		vault:           l.vault.state(),
		freeze:          l.freeze,
		rewards:         l.rewards.Snapshot(),
	}
}

func (l *Ledger) restore(snap *snapshot) {
	l.stakeRequests = snap.stakeRequests
	l.unstakeRequests = snap.unstakeRequests
	l.claimRequests = snap.claimRequests
	l.vault.restore(snap.vault)
	l.freeze = snap.freeze
	l.rewards.Restore(snap.rewards)
}

// custodyBalance reads the ledger's own balance on the custody token.
func (l *Ledger) custodyBalance(ctx context.Context) (sdkmath.Int, error) {
	balance, err := l.token.BalanceOf(ctx, l.params.CustodyAccount)
	if err != nil {
		return sdkmath.Int{}, types.NewExternalEffectError(
			fmt.Errorf("failed to read custody balance: %w", err),
		)
	}
	return balance, nil
}

func (l *Ledger) requireCustodyCovers(ctx context.Context, amount sdkmath.Int) error {
	balance, err := l.custodyBalance(ctx)
	if err != nil {
		return err
	}
	if balance.LT(amount) {
		return types.NewInsufficientFundsError(
			fmt.Errorf("custody balance %s is below required payout %s", balance, amount),
		)
	}
	return nil
}

func (l *Ledger) validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.NewValidationError(fmt.Errorf("amount must be positive"))
	}
	if l.params.EnforceMinimums && amount.LT(l.params.MinStake) {
		return types.NewValidationError(
			fmt.Errorf("amount %s is below minimum stake %s", amount, l.params.MinStake),
		)
	}
	return nil
}

// Vault returns the compounding vault. Callers must go through Ledger
// operations for mutations; this is for read-only reporting.
func (l *Ledger) VaultTotals() (totalAssets, totalShares sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vault.totalAssets, l.vault.totalShares
}

// PendingCounts reports unprocessed requests per book.
func (l *Ledger) PendingCounts() (stake, unstake, claim int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.stakeRequests {
		if !l.stakeRequests[i].Processed {
			stake++
		}
	}
	for i := range l.unstakeRequests {
		if !l.unstakeRequests[i].Processed {
			unstake++
		}
	}
	for i := range l.claimRequests {
		if !l.claimRequests[i].Processed {
			claim++
		}
	}
	return stake, unstake, claim
}
