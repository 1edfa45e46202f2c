package services

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/observability/metrics"
	"github.com/nativestake/custody-ledger/internal/types"
	"github.com/nativestake/custody-ledger/internal/utils/poller"
)

// StartOracleRefreshPoller keeps the oracle freshness gauges warm by probing
// both sources on an interval.
func (s *Service) StartOracleRefreshPoller(ctx context.Context) {
	refreshPoller := poller.NewPoller(
		"oracle-refresh",
		s.cfg.Poller.OracleRefreshInterval,
		s.refreshOracle,
	)
	go refreshPoller.Start(ctx)
}

func (s *Service) refreshOracle(ctx context.Context) *types.Error {
	// IsFresh never fails; it records per-source gauges as a side effect.
	s.oracle.IsFresh(ctx, s.cfg.Ledger.NativeAsset)
	s.oracle.IsFresh(ctx, s.cfg.Ledger.ReportAsset)
	return nil
}

// StartVaultStatsPoller publishes vault totals and pending request gauges.
func (s *Service) StartVaultStatsPoller(ctx context.Context) {
	statsPoller := poller.NewPoller(
		"vault-stats",
		s.cfg.Poller.VaultStatsInterval,
		s.recordVaultStats,
	)
	go statsPoller.Start(ctx)
}

func (s *Service) recordVaultStats(_ context.Context) *types.Error {
	totalAssets, totalShares := s.ledger.VaultTotals()
	metrics.RecordVaultTotals(intToFloat(totalAssets), intToFloat(totalShares))
	s.recordPending()
	return nil
}

// intToFloat is for gauges only; precision loss on huge balances is fine.
func intToFloat(v sdkmath.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, _ := sdkmath.LegacyNewDecFromInt(v).Float64()
	return f
}
