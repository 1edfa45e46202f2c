package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Db: DbConfig{
			Username: "test",
			Password: "test",
			Address:  "mongodb://localhost:27017",
			DbName:   "test",
		},
		Ledger: LedgerConfig{
			CustodyAccount: "custody",
			NativeAsset:    "uatom",
			ReportAsset:    "stuatom",
		},
		Delegation: DelegationConfig{
			Endpoint:      "http://localhost:8181",
			Timeout:       20 * time.Second,
			MaxRetryTimes: 3,
			RetryInterval: 1 * time.Second,
		},
		Custody: CustodyConfig{
			Endpoint:      "http://localhost:8182",
			Timeout:       20 * time.Second,
			MaxRetryTimes: 3,
			RetryInterval: 1 * time.Second,
		},
		Oracle: OracleConfig{
			PrimaryEndpoint:  "http://localhost:8183",
			FallbackEndpoint: "http://localhost:8184",
			Timeout:          15 * time.Second,
			MaxRetryTimes:    3,
			RetryInterval:    1 * time.Second,
			MaxStaleness:     24 * time.Hour,
		},
		Vault: VaultConfig{
			MaxLiquidityPercent: 30,
			SeedAmount:          "1000000",
		},
		Staking: StakingConfig{
			EnforceMinimums: true,
			MinStake:        "1000",
			MinRewardClaim:  "100",
		},
		Access: AccessConfig{
			Principals: map[string]any{
				"alice": []string{"user"},
				"ops":   []string{"user", "operator"},
			},
			Capabilities: map[string]any{
				"seed_vault": []string{"operator"},
			},
		},
		Queue: QueueConfig{
			Url:           "localhost:5672",
			QueueUser:     "test",
			QueuePassword: "test",
			ExchangeName:  "ledger.events",
		},
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 2112,
		},
		Poller: PollerConfig{
			OracleRefreshInterval: 1 * time.Minute,
			VaultStatsInterval:    5 * time.Minute,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_OptionalFallbackOracle(t *testing.T) {
	cfg := validConfig()
	cfg.Oracle.FallbackEndpoint = ""
	require.NoError(t, cfg.Validate())
}

func TestOracleConfig_DefaultStaleness(t *testing.T) {
	cfg := validConfig()
	cfg.Oracle.MaxStaleness = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 24*time.Hour, cfg.Oracle.MaxStaleness)
}

func TestStakingConfig_MinimumsOptional(t *testing.T) {
	cfg := validConfig()
	cfg.Staking = StakingConfig{EnforceMinimums: false}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Staking.MinStakeAmount().IsZero())

	cfg.Staking = StakingConfig{EnforceMinimums: true, MinStake: "abc", MinRewardClaim: "1"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min-stake")
}

func TestVaultConfig_Validate(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.MaxLiquidityPercent = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-liquidity-percent")

	cfg = validConfig()
	cfg.Vault.MaxLiquidityPercent = 101
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Vault.SeedAmount = "0"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed-amount")
}

func TestAccessConfig_Validate(t *testing.T) {
	cfg := validConfig()
	cfg.Access.Principals = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "principals")

	cfg = validConfig()
	cfg.Access.Principals["bob"] = "user operator"
	require.NoError(t, cfg.Validate())
	roles, err := cfg.Access.PrincipalRoles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user", "operator"}, roles["bob"])
}

func TestLedgerConfig_Validate(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.CustodyAccount = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custody-account")
}
