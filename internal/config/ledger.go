package config

import "errors"

type LedgerConfig struct {
	// CustodyAccount is the ledger's own account on the custody token.
	CustodyAccount string `mapstructure:"custody-account"`
	// NativeAsset and ReportAsset name the two denominations the oracle
	// converts between.
	NativeAsset string `mapstructure:"native-asset"`
	ReportAsset string `mapstructure:"report-asset"`
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.CustodyAccount == "" {
		return errors.New("ledger custody-account is required")
	}
	if cfg.NativeAsset == "" {
		return errors.New("ledger native-asset is required")
	}
	if cfg.ReportAsset == "" {
		return errors.New("ledger report-asset is required")
	}
	return nil
}
