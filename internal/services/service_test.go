package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativestake/custody-ledger/internal/access"
	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/db"
	"github.com/nativestake/custody-ledger/internal/db/model"
	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/queue"
	"github.com/nativestake/custody-ledger/internal/types"
)

const (
	custodyAccount = "custody"
	alice          = "alice"
	operator       = "ops"
	fulfiller      = "settler"
	validator1     = "validator-1"
)

// memDb is an in-memory DbInterface so service tests can assert journal
// writes without Mongo. markErr makes every processed-mark write fail, for
// tests covering an unreachable journal at fulfillment time.
type memDb struct {
	stake   map[uint64]*model.StakeRequestDocument
	unstake map[uint64]*model.UnstakeRequestDocument
	claims  map[uint64]*model.RewardClaimRequestDocument
	vault   *model.VaultStateDocument
	rewards map[string]*model.RewardEntryDocument
	freeze  *model.FreezeWindowDocument
	markErr error
}

func newMemDb() *memDb {
	return &memDb{
		stake:   make(map[uint64]*model.StakeRequestDocument),
		unstake: make(map[uint64]*model.UnstakeRequestDocument),
		claims:  make(map[uint64]*model.RewardClaimRequestDocument),
		rewards: make(map[string]*model.RewardEntryDocument),
	}
}

func (m *memDb) Ping(context.Context) error { return nil }

func (m *memDb) SaveStakeRequest(_ context.Context, doc *model.StakeRequestDocument) error {
	if _, ok := m.stake[doc.ID]; ok {
		return &db.DuplicateKeyError{Key: fmt.Sprint(doc.ID), Message: "exists"}
	}
	m.stake[doc.ID] = doc
	return nil
}

func (m *memDb) SaveUnstakeRequest(_ context.Context, doc *model.UnstakeRequestDocument) error {
	m.unstake[doc.ID] = doc
	return nil
}

func (m *memDb) SaveRewardClaimRequest(_ context.Context, doc *model.RewardClaimRequestDocument) error {
	m.claims[doc.ID] = doc
	return nil
}

func (m *memDb) MarkStakeRequestProcessed(_ context.Context, id uint64) error {
	if m.markErr != nil {
		return m.markErr
	}
	doc, ok := m.stake[id]
	if !ok {
		return &db.NotFoundError{Key: fmt.Sprint(id), Message: "not found"}
	}
	doc.Processed = true
	return nil
}

func (m *memDb) MarkUnstakeRequestProcessed(_ context.Context, id uint64, correlationID string) error {
	if m.markErr != nil {
		return m.markErr
	}
	doc, ok := m.unstake[id]
	if !ok {
		return &db.NotFoundError{Key: fmt.Sprint(id), Message: "not found"}
	}
	doc.Processed = true
	if correlationID != "" {
		doc.CorrelationID = correlationID
	}
	return nil
}

func (m *memDb) MarkRewardClaimRequestProcessed(_ context.Context, id uint64, amount string) error {
	if m.markErr != nil {
		return m.markErr
	}
	doc, ok := m.claims[id]
	if !ok {
		return &db.NotFoundError{Key: fmt.Sprint(id), Message: "not found"}
	}
	doc.Processed = true
	if amount != "" {
		doc.Amount = amount
	}
	return nil
}

func sortedDocs[T any](docs map[uint64]*T) []T {
	ids := make([]uint64, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, *docs[id])
	}
	return out
}

func (m *memDb) GetStakeRequests(context.Context) ([]model.StakeRequestDocument, error) {
	return sortedDocs(m.stake), nil
}

func (m *memDb) GetUnstakeRequests(context.Context) ([]model.UnstakeRequestDocument, error) {
	return sortedDocs(m.unstake), nil
}

func (m *memDb) GetRewardClaimRequests(context.Context) ([]model.RewardClaimRequestDocument, error) {
	return sortedDocs(m.claims), nil
}

func (m *memDb) UpsertVaultState(_ context.Context, doc *model.VaultStateDocument) error {
	m.vault = doc
	return nil
}

func (m *memDb) GetVaultState(context.Context) (*model.VaultStateDocument, error) {
	if m.vault == nil {
		return nil, &db.NotFoundError{Key: model.VaultStateID, Message: "not found"}
	}
	return m.vault, nil
}

func (m *memDb) UpsertRewardEntry(_ context.Context, doc *model.RewardEntryDocument) error {
	m.rewards[doc.User] = doc
	return nil
}

func (m *memDb) DeleteRewardEntry(_ context.Context, user string) error {
	delete(m.rewards, user)
	return nil
}

func (m *memDb) GetRewardEntries(context.Context) ([]model.RewardEntryDocument, error) {
	out := make([]model.RewardEntryDocument, 0, len(m.rewards))
	for _, doc := range m.rewards {
		out = append(out, *doc)
	}
	return out, nil
}

func (m *memDb) UpsertFreezeWindow(_ context.Context, doc *model.FreezeWindowDocument) error {
	m.freeze = doc
	return nil
}

func (m *memDb) GetFreezeWindow(context.Context) (*model.FreezeWindowDocument, error) {
	if m.freeze == nil {
		return nil, &db.NotFoundError{Key: model.FreezeWindowID, Message: "not found"}
	}
	return m.freeze, nil
}

type fakeQueue struct {
	events []queue.Event
}

func (q *fakeQueue) Publish(_ context.Context, event queue.Event) {
	q.events = append(q.events, event)
}

func (q *fakeQueue) Shutdown() error { return nil }

type testToken struct {
	balances map[string]sdkmath.Int
}

func (t *testToken) balanceOf(account string) sdkmath.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (t *testToken) BalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	return t.balanceOf(account), nil
}

func (t *testToken) Transfer(_ context.Context, to string, amount sdkmath.Int) error {
	if t.balanceOf(custodyAccount).LT(amount) {
		return errors.New("custody balance too low")
	}
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *testToken) TransferFrom(_ context.Context, from, to string, amount sdkmath.Int) error {
	if t.balanceOf(from).LT(amount) {
		return errors.New("balance too low")
	}
	t.balances[from] = t.balanceOf(from).Sub(amount)
	t.balances[to] = t.balanceOf(to).Add(amount)
	return nil
}

func (t *testToken) Deposit(_ context.Context, _ string, amount sdkmath.Int) error {
	t.balances[custodyAccount] = t.balanceOf(custodyAccount).Add(amount)
	return nil
}

func (t *testToken) Withdraw(ctx context.Context, to string, amount sdkmath.Int) error {
	return t.Transfer(ctx, to, amount)
}

type testDelegation struct {
	unstakes int
}

func (d *testDelegation) Stake(context.Context, string, sdkmath.Int, string) error { return nil }

func (d *testDelegation) Unstake(context.Context, string, sdkmath.Int, string) (string, error) {
	d.unstakes++
	return fmt.Sprintf("corr-%d", d.unstakes), nil
}

func (d *testDelegation) ClaimUnstake(context.Context, string, string) (sdkmath.Int, error) {
	return sdkmath.NewInt(50), nil
}

func (d *testDelegation) GetTotalStake(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}

func (d *testDelegation) GetPendingRewards(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}

func (d *testDelegation) GetUnstakeRequest(context.Context, string) (*ledger.UnstakeRequestInfo, error) {
	return nil, nil
}

type testOracle struct{}

func (testOracle) GetPrice(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.NewInt(1), nil
}

func (testOracle) GetUnbondingPeriod(context.Context) (time.Duration, error) {
	return 21 * 24 * time.Hour, nil
}

func (testOracle) ConvertAmount(_ context.Context, amount sdkmath.Int, _, _ string) (sdkmath.Int, error) {
	return amount, nil
}

func (testOracle) IsFresh(context.Context, string) bool { return true }

type fixture struct {
	service *Service
	db      *memDb
	queue   *fakeQueue
	token   *testToken
	rewards *oracle.RewardLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	token := &testToken{balances: map[string]sdkmath.Int{
		alice:    sdkmath.NewInt(1_000),
		operator: sdkmath.NewInt(1_000),
	}}
	rewards := oracle.NewRewardLedger()

	core, err := ledger.New(
		ledger.Params{
			CustodyAccount:      custodyAccount,
			NativeAsset:         "uatom",
			ReportAsset:         "stuatom",
			MaxLiquidityPercent: 100,
		},
		&testDelegation{}, token, testOracle{}, rewards,
	)
	require.NoError(t, err)

	gate := access.NewGate(
		map[string][]string{
			alice:     {"user"},
			operator:  {"user", "operator"},
			fulfiller: {"fulfiller"},
		},
		map[string][]string{
			string(access.OpFulfillStake):        {"fulfiller"},
			string(access.OpFulfillUnstake):      {"fulfiller"},
			string(access.OpFulfillClaimRewards): {"fulfiller"},
			string(access.OpUpdateRewards):       {"operator"},
			string(access.OpSeedVault):           {"operator"},
			string(access.OpPause):               {"operator"},
			string(access.OpUnpause):             {"operator"},
		},
	)

	mdb := newMemDb()
	q := &fakeQueue{}
	cfg := &config.Config{
		Ledger: config.LedgerConfig{
			CustodyAccount: custodyAccount,
			NativeAsset:    "uatom",
			ReportAsset:    "stuatom",
		},
	}

	return &fixture{
		service: NewService(cfg, mdb, core, rewards, nil, gate, q),
		db:      mdb,
		queue:   q,
		token:   token,
		rewards: rewards,
	}
}

func TestRequestStakeJournalsAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), req.ID)

	require.Contains(t, f.db.stake, uint64(0))
	assert.Equal(t, "100", f.db.stake[0].Amount)
	assert.False(t, f.db.stake[0].Processed)

	require.Len(t, f.queue.events, 1)
	assert.Equal(t, queue.EventStakeRequested, f.queue.events[0].Type)
	assert.Equal(t, alice, f.queue.events[0].User)
}

func TestFulfillmentGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)

	_, err = f.service.FulfillStake(ctx, alice, 0)
	require.Error(t, err)
	assert.True(t, types.IsAuthorizationError(err))

	req, err := f.service.FulfillStake(ctx, fulfiller, 0)
	require.NoError(t, err)
	assert.True(t, req.Processed)
	assert.True(t, f.db.stake[0].Processed)

	// The core rejects the second call before the journal is touched.
	_, err = f.service.FulfillStake(ctx, fulfiller, 0)
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))
}

func TestFulfillmentRequiresDurableMark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)

	// With the journal unreachable the fulfillment must abort before any
	// funds move, leaving the request open.
	f.db.markErr = errors.New("journal unreachable")
	_, err = f.service.FulfillStake(ctx, fulfiller, 0)
	require.Error(t, err)
	assert.True(t, types.IsInternalError(err))

	req, err := f.service.StakeRequest(0)
	require.NoError(t, err)
	assert.False(t, req.Processed)
	assert.False(t, f.db.stake[0].Processed)

	// Once the journal is back the same request settles normally.
	f.db.markErr = nil
	req, err = f.service.FulfillStake(ctx, fulfiller, 0)
	require.NoError(t, err)
	assert.True(t, req.Processed)
	assert.True(t, f.db.stake[0].Processed)
}

func TestPauseBlocksOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.service.Pause(operator))

	_, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))

	// Unpause is control-plane and must work while paused.
	require.NoError(t, f.service.Unpause(operator))
	_, err = f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)

	err = f.service.Pause(alice)
	require.Error(t, err)
	assert.True(t, types.IsAuthorizationError(err))
}

func TestUpdateRewardsPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.service.UpdateRewards(ctx, alice, alice, validator1, sdkmath.NewInt(5))
	require.Error(t, err)
	assert.True(t, types.IsAuthorizationError(err))

	require.NoError(t, f.service.UpdateRewards(ctx, operator, alice, validator1, sdkmath.NewInt(5)))
	assert.Equal(t, sdkmath.NewInt(5), f.rewards.Claimable(alice))
	require.Contains(t, f.db.rewards, alice)
	assert.Equal(t, "5", f.db.rewards[alice].Global)
	assert.Equal(t, "5", f.db.rewards[alice].PerValidator[validator1])
}

func TestVaultOperationsJournalState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.SeedVault(ctx, operator, sdkmath.NewInt(1))
	require.NoError(t, err)
	_, err = f.service.VaultDeposit(ctx, alice, sdkmath.NewInt(100))
	require.NoError(t, err)

	require.NotNil(t, f.db.vault)
	assert.Equal(t, "101", f.db.vault.TotalAssets)
	assert.Equal(t, "101", f.db.vault.TotalShares)
}

func TestRestoreFromJournal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Drive some state through the service, then rebuild a fresh one from
	// the same journal.
	_, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)
	_, err = f.service.RequestStake(ctx, alice, sdkmath.NewInt(200), types.ModeAPR, validator1)
	require.NoError(t, err)
	_, err = f.service.FulfillStake(ctx, fulfiller, 0)
	require.NoError(t, err)
	_, err = f.service.SeedVault(ctx, operator, sdkmath.NewInt(10))
	require.NoError(t, err)
	require.NoError(t, f.service.UpdateRewards(ctx, operator, alice, validator1, sdkmath.NewInt(7)))

	restored := newFixture(t)
	restored.db = f.db
	restored.service.db = f.db
	require.NoError(t, restored.service.RestoreFromJournal(ctx))

	req, err := restored.service.ledger.StakeRequestByID(0)
	require.NoError(t, err)
	assert.True(t, req.Processed)
	req, err = restored.service.ledger.StakeRequestByID(1)
	require.NoError(t, err)
	assert.False(t, req.Processed)
	assert.Equal(t, sdkmath.NewInt(200), req.Amount)

	totalAssets, totalShares := restored.service.ledger.VaultTotals()
	assert.Equal(t, sdkmath.NewInt(10), totalAssets)
	assert.Equal(t, sdkmath.NewInt(10), totalShares)

	assert.Equal(t, sdkmath.NewInt(7), restored.rewards.Claimable(alice))
	assert.Equal(t, sdkmath.NewInt(7), restored.rewards.ClaimableForValidator(alice, validator1))

	// A fulfillment settled before the restart must stay settled after it.
	_, err = restored.service.FulfillStake(ctx, fulfiller, 0)
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))
}

func TestRestoreQuarantinesJournalGaps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for range 3 {
		_, err := f.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
		require.NoError(t, err)
	}
	// Simulate a request whose journal write was lost.
	delete(f.db.stake, 1)

	restored := newFixture(t)
	restored.db = f.db
	restored.service.db = f.db
	require.NoError(t, restored.service.RestoreFromJournal(ctx))

	// The gap is quarantined: never fulfillable, its id never reused.
	req, err := restored.service.StakeRequest(1)
	require.NoError(t, err)
	assert.True(t, req.Processed)
	_, err = restored.service.FulfillStake(ctx, fulfiller, 1)
	require.Error(t, err)
	assert.True(t, types.IsStateError(err))

	req, err = restored.service.StakeRequest(2)
	require.NoError(t, err)
	assert.False(t, req.Processed)

	next, err := restored.service.RequestStake(ctx, alice, sdkmath.NewInt(100), types.ModeAPR, validator1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next.ID)
}
