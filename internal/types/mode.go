package types

import "fmt"

// StakingMode selects the destination of delegated value.
type StakingMode string

const (
	// ModeAPR delegates to a named validator; rewards are reported
	// externally and credited through the oracle.
	ModeAPR StakingMode = "APR"
	// ModeAPY pools value into the auto-compounding share vault.
	ModeAPY StakingMode = "APY"
)

func (m StakingMode) String() string {
	return string(m)
}

func (m StakingMode) Validate() error {
	switch m {
	case ModeAPR, ModeAPY:
		return nil
	}
	return fmt.Errorf("unknown staking mode %q", string(m))
}
