package config

import (
	"errors"
	"time"
)

type PollerConfig struct {
	OracleRefreshInterval time.Duration `mapstructure:"oracle-refresh-interval"`
	VaultStatsInterval    time.Duration `mapstructure:"vault-stats-interval"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.OracleRefreshInterval <= 0 {
		return errors.New("oracle-refresh-interval must be positive")
	}
	if cfg.VaultStatsInterval <= 0 {
		return errors.New("vault-stats-interval must be positive")
	}
	return nil
}
