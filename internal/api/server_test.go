package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativestake/custody-ledger/internal/access"
	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/db/model"
	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/services"
)

const (
	custodyAccount = "custody"
	alice          = "alice"
	operator       = "ops"
	validator1     = "validator-1"
)

// nopDb satisfies the journal interface; handler tests assert HTTP
// behavior, not persistence.
type nopDb struct{}

func (nopDb) Ping(context.Context) error { return nil }
func (nopDb) SaveStakeRequest(context.Context, *model.StakeRequestDocument) error {
	return nil
}
func (nopDb) SaveUnstakeRequest(context.Context, *model.UnstakeRequestDocument) error {
	return nil
}
func (nopDb) SaveRewardClaimRequest(context.Context, *model.RewardClaimRequestDocument) error {
	return nil
}
func (nopDb) MarkStakeRequestProcessed(context.Context, uint64) error           { return nil }
func (nopDb) MarkUnstakeRequestProcessed(context.Context, uint64, string) error { return nil }
func (nopDb) MarkRewardClaimRequestProcessed(context.Context, uint64, string) error {
	return nil
}
func (nopDb) GetStakeRequests(context.Context) ([]model.StakeRequestDocument, error) {
	return nil, nil
}
func (nopDb) GetUnstakeRequests(context.Context) ([]model.UnstakeRequestDocument, error) {
	return nil, nil
}
func (nopDb) GetRewardClaimRequests(context.Context) ([]model.RewardClaimRequestDocument, error) {
	return nil, nil
}
func (nopDb) UpsertVaultState(context.Context, *model.VaultStateDocument) error { return nil }
func (nopDb) GetVaultState(context.Context) (*model.VaultStateDocument, error)  { return nil, nil }
func (nopDb) UpsertRewardEntry(context.Context, *model.RewardEntryDocument) error {
	return nil
}
func (nopDb) DeleteRewardEntry(context.Context, string) error { return nil }
func (nopDb) GetRewardEntries(context.Context) ([]model.RewardEntryDocument, error) {
	return nil, nil
}
func (nopDb) UpsertFreezeWindow(context.Context, *model.FreezeWindowDocument) error {
	return nil
}
func (nopDb) GetFreezeWindow(context.Context) (*model.FreezeWindowDocument, error) {
	return nil, nil
}

type fakeToken struct {
	balances map[string]sdkmath.Int
}

func (t *fakeToken) balanceOf(account string) sdkmath.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (t *fakeToken) BalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	return t.balanceOf(account), nil
}

func (t *fakeToken) Transfer(_ context.Context, to string, amount sdkmath.Int) error {
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *fakeToken) TransferFrom(_ context.Context, from, to string, amount sdkmath.Int) error {
	if t.balanceOf(from).LT(amount) {
		return fmt.Errorf("balance too low")
	}
	t.balances[from] = t.balanceOf(from).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *fakeToken) Deposit(_ context.Context, _ string, amount sdkmath.Int) error {
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Add(amount)
	return nil
}

func (t *fakeToken) Withdraw(ctx context.Context, to string, amount sdkmath.Int) error {
	return t.Transfer(ctx, to, amount)
}

type fakeDelegation struct{}

func (fakeDelegation) Stake(context.Context, string, sdkmath.Int, string) error { return nil }
func (fakeDelegation) Unstake(context.Context, string, sdkmath.Int, string) (string, error) {
	return "corr-1", nil
}
func (fakeDelegation) ClaimUnstake(context.Context, string, string) (sdkmath.Int, error) {
	return sdkmath.NewInt(50), nil
}
func (fakeDelegation) GetTotalStake(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}
func (fakeDelegation) GetPendingRewards(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}
func (fakeDelegation) GetUnstakeRequest(context.Context, string) (*ledger.UnstakeRequestInfo, error) {
	return nil, nil
}

type fakeSource struct{}

func (fakeSource) Name() string { return "fake" }

func (fakeSource) GetPrice(context.Context, string) (*oracle.PriceReading, error) {
	return &oracle.PriceReading{Price: sdkmath.NewInt(100_000_000), Timestamp: time.Now()}, nil
}

func (fakeSource) GetCurrentAPR(context.Context) (*oracle.RateReading, error) {
	return &oracle.RateReading{Rate: sdkmath.LegacyMustNewDecFromStr("0.05"), Timestamp: time.Now()}, nil
}

func (fakeSource) GetCurrentAPY(context.Context) (*oracle.RateReading, error) {
	return &oracle.RateReading{Rate: sdkmath.LegacyMustNewDecFromStr("0.07"), Timestamp: time.Now()}, nil
}

func (fakeSource) GetUnbondingPeriod(context.Context) (*oracle.DurationReading, error) {
	return &oracle.DurationReading{Period: 21 * 24 * time.Hour, Timestamp: time.Now()}, nil
}

func (fakeSource) GetRewards(context.Context) (*oracle.RewardsReading, error) {
	return &oracle.RewardsReading{
		Amount:    sdkmath.NewInt(10),
		Period:    24 * time.Hour,
		Timestamp: time.Now(),
	}, nil
}

func (fakeSource) GetLaunchTimestamp(context.Context) (time.Time, error) {
	return time.Now().Add(-30 * 24 * time.Hour), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	token := &fakeToken{balances: map[string]sdkmath.Int{
		alice:    sdkmath.NewInt(1_000),
		operator: sdkmath.NewInt(1_000),
	}}
	adapter := oracle.NewAdapter(fakeSource{}, 24*time.Hour)
	rewards := adapter.Rewards()

	core, err := ledger.New(
		ledger.Params{
			CustodyAccount:      custodyAccount,
			NativeAsset:         "uatom",
			ReportAsset:         "stuatom",
			MaxLiquidityPercent: 100,
		},
		fakeDelegation{}, token, adapter, rewards,
	)
	require.NoError(t, err)

	gate := access.NewGate(
		map[string][]string{
			alice:    {"user"},
			operator: {"user", "operator"},
		},
		map[string][]string{
			string(access.OpUpdateRewards): {"operator"},
			string(access.OpSeedVault):     {"operator"},
			string(access.OpPause):         {"operator"},
			string(access.OpUnpause):       {"operator"},
		},
	)

	cfg := &config.Config{
		Ledger: config.LedgerConfig{
			CustodyAccount: custodyAccount,
			NativeAsset:    "uatom",
			ReportAsset:    "stuatom",
		},
	}
	service := services.NewService(cfg, nopDb{}, core, rewards, adapter, gate, nil)

	apiCfg := &config.APIConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}
	srv := httptest.NewServer(New(apiCfg, service).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, principal string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reqBody)
	require.NoError(t, err)
	if principal != "" {
		req.Header.Set(principalHeader, principal)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestRequestStakeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/requests/stake", alice, map[string]string{
		"amount":    "100",
		"mode":      "APR",
		"validator": validator1,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(0), resp["id"])
	assert.Equal(t, alice, resp["user"])
	assert.Equal(t, "100", resp["amount"])
	assert.Equal(t, false, resp["processed"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/requests/stake/0", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice, resp["user"])

	status, _ = doRequest(t, srv, http.MethodGet, "/v1/requests/stake/42", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPrincipalHeaderRequired(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/requests/stake", "", map[string]string{
		"amount": "100",
		"mode":   "APR",
	})
	require.Equal(t, http.StatusForbidden, status)
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "AUTHORIZATION", errBody["category"])
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/requests/stake", alice, map[string]string{
		"amount": "not-a-number",
		"mode":   "APR",
	})
	require.Equal(t, http.StatusBadRequest, status)
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "VALIDATION", errBody["category"])

	// APR mode without a validator is rejected by the core.
	status, _ = doRequest(t, srv, http.MethodPost, "/v1/requests/stake", alice, map[string]string{
		"amount": "100",
		"mode":   "APR",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDirectStakeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/staking/stake", alice, map[string]any{
		"amount":    "200",
		"validator": validator1,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200", resp["amount"])
	assert.Equal(t, validator1, resp["validator"])
	assert.Equal(t, "200", resp["reported"])
}

func TestVaultEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/vault/seed", operator, map[string]string{
		"amount": "1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", resp["shares"])

	status, resp = doRequest(t, srv, http.MethodPost, "/v1/vault/deposit", alice, map[string]string{
		"amount": "100",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", resp["shares"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/vault", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "101", resp["total_assets"])
	assert.Equal(t, "101", resp["total_shares"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/vault/shares/"+alice, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", resp["shares"])

	// Seeding is operator-gated.
	status, _ = doRequest(t, srv, http.MethodPost, "/v1/vault/seed", alice, map[string]string{
		"amount": "1",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPauseEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doRequest(t, srv, http.MethodPost, "/v1/admin/pause", alice, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, srv, http.MethodPost, "/v1/admin/pause", operator, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/requests/stake", alice, map[string]string{
		"amount":    "100",
		"mode":      "APR",
		"validator": validator1,
	})
	require.Equal(t, http.StatusConflict, status)
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, "STATE", errBody["category"])

	status, _ = doRequest(t, srv, http.MethodPost, "/v1/admin/unpause", operator, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestFreezeEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doRequest(t, srv, http.MethodPost, "/v1/admin/freeze", operator, map[string]string{
		"duration": "72h",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp["frozen"])

	// Unstaking is blocked while frozen.
	status, _ = doRequest(t, srv, http.MethodPost, "/v1/staking/unstake", alice, map[string]string{
		"amount":    "10",
		"validator": validator1,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, resp = doRequest(t, srv, http.MethodPost, "/v1/admin/thaw", operator, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, resp["frozen"])
}

func TestOracleEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Source precision is 8 digits; the adapter reports 18.
	status, resp := doRequest(t, srv, http.MethodGet, "/v1/oracle/price/uatom", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1000000000000000000", resp["price"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/oracle/apr", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.050000000000000000", resp["apr"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/oracle/apy", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.070000000000000000", resp["apy"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/oracle/unbonding-period", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "504h0m0s", resp["unbonding_period"])
}

func TestRewardsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Fund custody so the payout has something to draw on.
	status, _ := doRequest(t, srv, http.MethodPost, "/v1/staking/stake", alice, map[string]string{
		"amount":    "100",
		"validator": validator1,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, srv, http.MethodPost, "/v1/admin/rewards", operator, map[string]string{
		"user":      alice,
		"validator": validator1,
		"amount":    "30",
	})
	require.Equal(t, http.StatusOK, status)

	status, resp := doRequest(t, srv, http.MethodGet, "/v1/staking/rewards", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30", resp["claimable"])

	status, resp = doRequest(t, srv, http.MethodGet, "/v1/staking/rewards?validator="+validator1, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30", resp["claimable"])

	status, resp = doRequest(t, srv, http.MethodPost, "/v1/staking/rewards/claim", alice, map[string]string{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30", resp["paid"])

	// Claiming with nothing accrued fails validation.
	status, _ = doRequest(t, srv, http.MethodPost, "/v1/staking/rewards/claim", alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}
