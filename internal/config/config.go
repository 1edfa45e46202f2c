package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Db         DbConfig         `mapstructure:"db"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Delegation DelegationConfig `mapstructure:"delegation"`
	Custody    CustodyConfig    `mapstructure:"custody"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Staking    StakingConfig    `mapstructure:"staking"`
	Access     AccessConfig     `mapstructure:"access"`
	Queue      QueueConfig      `mapstructure:"queue"`
	API        APIConfig        `mapstructure:"api"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Poller     PollerConfig     `mapstructure:"poller"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Db.Validate(); err != nil {
		return err
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}
	if err := cfg.Delegation.Validate(); err != nil {
		return err
	}
	if err := cfg.Custody.Validate(); err != nil {
		return err
	}
	if err := cfg.Oracle.Validate(); err != nil {
		return err
	}
	if err := cfg.Vault.Validate(); err != nil {
		return err
	}
	if err := cfg.Staking.Validate(); err != nil {
		return err
	}
	if err := cfg.Access.Validate(); err != nil {
		return err
	}
	if err := cfg.Queue.Validate(); err != nil {
		return err
	}
	if err := cfg.API.Validate(); err != nil {
		return err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	if err := cfg.Poller.Validate(); err != nil {
		return err
	}
	return nil
}

// New returns a fully validated configuration loaded from the given file.
func New(cfgFile string) (*Config, error) {
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file %s: %w", cfgFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
