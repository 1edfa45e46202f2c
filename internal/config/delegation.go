package config

import (
	"errors"
	"time"
)

type DelegationConfig struct {
	// Endpoint is the base URL of the delegation ledger collaborator.
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *DelegationConfig) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("delegation endpoint is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("delegation timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("delegation max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("delegation retry-interval must be positive")
	}
	return nil
}

type CustodyConfig struct {
	// Endpoint is the base URL of the value custody token collaborator.
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *CustodyConfig) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("custody endpoint is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("custody timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("custody max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("custody retry-interval must be positive")
	}
	return nil
}
