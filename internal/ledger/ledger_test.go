package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/types"
)

const (
	custodyAccount = "custody"
	alice          = "alice"
	bob            = "bob"
	seeder         = "treasury"
	validator1     = "validator-1"
)

// fakeToken is an in-memory custody token. Transfer debits the custody
// account, mirroring the collaborator's view of the ledger as a holder.
type fakeToken struct {
	balances     map[string]sdkmath.Int
	failTransfer bool
	failPull     bool
}

func newFakeToken() *fakeToken {
	return &fakeToken{balances: make(map[string]sdkmath.Int)}
}

func (t *fakeToken) balanceOf(account string) sdkmath.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (t *fakeToken) mint(account string, amount int64) {
	t.balances[account] = t.balanceOf(account).AddRaw(amount)
}

func (t *fakeToken) BalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	return t.balanceOf(account), nil
}

func (t *fakeToken) Transfer(_ context.Context, to string, amount sdkmath.Int) error {
	if t.failTransfer {
		return errors.New("transfer refused")
	}
	if t.balanceOf(custodyAccount).LT(amount) {
		return errors.New("custody balance too low")
	}
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *fakeToken) TransferFrom(_ context.Context, from, to string, amount sdkmath.Int) error {
	if t.failPull {
		return errors.New("allowance exceeded")
	}
	if t.balanceOf(from).LT(amount) {
		return errors.New("balance too low")
	}
	t.balances[from] = t.balanceOf(from).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *fakeToken) Deposit(_ context.Context, _ string, amount sdkmath.Int) error {
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Add(amount)
	return nil
}

func (t *fakeToken) Withdraw(_ context.Context, to string, amount sdkmath.Int) error {
	return t.Transfer(context.Background(), to, amount)
}

type stakedCall struct {
	user      string
	amount    sdkmath.Int
	validator string
}

type fakeDelegation struct {
	staked        []stakedCall
	failStake     bool
	failUnstake   bool
	claimAmount   sdkmath.Int
	failClaim     bool
	unstakeInfo   *UnstakeRequestInfo
	failLookup    bool
	unstakeCounts int
	token         *fakeToken
}

func (d *fakeDelegation) Stake(_ context.Context, user string, amount sdkmath.Int, validator string) error {
	if d.failStake {
		return errors.New("delegation unavailable")
	}
	// The delegation layer pulls the staked amount out of custody.
	if d.token != nil {
		d.token.balances[custodyAccount] = d.token.balanceOf(custodyAccount).Sub(amount)
	}
	d.staked = append(d.staked, stakedCall{user: user, amount: amount, validator: validator})
	return nil
}

func (d *fakeDelegation) Unstake(_ context.Context, _ string, _ sdkmath.Int, _ string) (string, error) {
	if d.failUnstake {
		return "", errors.New("delegation unavailable")
	}
	d.unstakeCounts++
	return fmt.Sprintf("corr-%d", d.unstakeCounts), nil
}

func (d *fakeDelegation) ClaimUnstake(_ context.Context, _, _ string) (sdkmath.Int, error) {
	if d.failClaim {
		return sdkmath.Int{}, errors.New("not matured")
	}
	return d.claimAmount, nil
}

func (d *fakeDelegation) GetTotalStake(_ context.Context, _ string) (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for _, s := range d.staked {
		total = total.Add(s.amount)
	}
	return total, nil
}

func (d *fakeDelegation) GetPendingRewards(_ context.Context, _ string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}

func (d *fakeDelegation) GetUnstakeRequest(_ context.Context, _ string) (*UnstakeRequestInfo, error) {
	if d.failLookup {
		return nil, errors.New("lookup failed")
	}
	return d.unstakeInfo, nil
}

type fakeOracle struct {
	period      time.Duration
	periodErr   error
	convertMul  int64
	convertFail bool
}

func (o *fakeOracle) GetPrice(_ context.Context, _ string) (sdkmath.Int, error) {
	return sdkmath.NewInt(1), nil
}

func (o *fakeOracle) GetUnbondingPeriod(_ context.Context) (time.Duration, error) {
	if o.periodErr != nil {
		return 0, o.periodErr
	}
	return o.period, nil
}

func (o *fakeOracle) ConvertAmount(_ context.Context, amount sdkmath.Int, _, _ string) (sdkmath.Int, error) {
	if o.convertFail {
		return sdkmath.Int{}, types.NewOracleError(errors.New("no fresh data"))
	}
	return amount.MulRaw(o.convertMul), nil
}

func (o *fakeOracle) IsFresh(_ context.Context, _ string) bool {
	return o.periodErr == nil
}

type fixture struct {
	ledger  *Ledger
	token   *fakeToken
	deleg   *fakeDelegation
	oracle  *fakeOracle
	rewards *oracle.RewardLedger
	now     time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T, opts ...func(*Params)) *fixture {
	t.Helper()

	params := Params{
		CustodyAccount:      custodyAccount,
		NativeAsset:         "uatom",
		ReportAsset:         "stuatom",
		EnforceMinimums:     true,
		MinStake:            sdkmath.NewInt(10),
		MinRewardClaim:      sdkmath.NewInt(1),
		MaxLiquidityPercent: 100,
	}
	for _, opt := range opts {
		opt(&params)
	}

	f := &fixture{
		token:   newFakeToken(),
		oracle:  &fakeOracle{period: 21 * 24 * time.Hour, convertMul: 2},
		rewards: oracle.NewRewardLedger(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.deleg = &fakeDelegation{claimAmount: sdkmath.NewInt(50), token: f.token}

	l, err := New(params, f.deleg, f.token, f.oracle, f.rewards, WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.ledger = l

	f.token.mint(alice, 1_000)
	f.token.mint(bob, 1_000)
	f.token.mint(seeder, 1_000)
	return f
}
