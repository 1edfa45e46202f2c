package config

import (
	"errors"
	"time"
)

type OracleConfig struct {
	// PrimaryEndpoint and FallbackEndpoint are the two oracle data sources.
	// FallbackEndpoint may be empty, in which case only the primary is used.
	PrimaryEndpoint  string        `mapstructure:"primary-endpoint"`
	FallbackEndpoint string        `mapstructure:"fallback-endpoint"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetryTimes    uint          `mapstructure:"max-retry-times"`
	RetryInterval    time.Duration `mapstructure:"retry-interval"`
	// MaxStaleness is the maximum age of a reading before it is rejected.
	MaxStaleness time.Duration `mapstructure:"max-staleness"`
}

const defaultMaxStaleness = 24 * time.Hour

func (cfg *OracleConfig) Validate() error {
	if cfg.PrimaryEndpoint == "" {
		return errors.New("oracle primary-endpoint is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("oracle timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("oracle max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("oracle retry-interval must be positive")
	}
	if cfg.MaxStaleness == 0 {
		cfg.MaxStaleness = defaultMaxStaleness
	}
	if cfg.MaxStaleness < 0 {
		return errors.New("oracle max-staleness must be positive")
	}
	return nil
}
