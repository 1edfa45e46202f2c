package model

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/ledger"
)

const VaultStateCollection = "vault_state"

// VaultStateID is the _id of the singleton vault document.
const VaultStateID = "vault"

type VaultStateDocument struct {
	ID                     string            `bson:"_id"`
	TotalAssets            string            `bson:"total_assets"`
	TotalShares            string            `bson:"total_shares"`
	Shares                 map[string]string `bson:"shares"`
	OutstandingRedemptions string            `bson:"outstanding_redemptions"`
}

func NewVaultStateDocument(dump ledger.VaultDump) *VaultStateDocument {
	shares := make(map[string]string, len(dump.Shares))
	for holder, s := range dump.Shares {
		shares[holder] = s.String()
	}
	return &VaultStateDocument{
		ID:                     VaultStateID,
		TotalAssets:            dump.TotalAssets.String(),
		TotalShares:            dump.TotalShares.String(),
		Shares:                 shares,
		OutstandingRedemptions: dump.OutstandingRedemptions.String(),
	}
}

func (d *VaultStateDocument) ToDump() (ledger.VaultDump, error) {
	totalAssets, err := parseAmount(d.TotalAssets)
	if err != nil {
		return ledger.VaultDump{}, fmt.Errorf("vault total assets: %w", err)
	}
	totalShares, err := parseAmount(d.TotalShares)
	if err != nil {
		return ledger.VaultDump{}, fmt.Errorf("vault total shares: %w", err)
	}
	outstanding := sdkmath.ZeroInt()
	if d.OutstandingRedemptions != "" {
		if outstanding, err = parseAmount(d.OutstandingRedemptions); err != nil {
			return ledger.VaultDump{}, fmt.Errorf("vault outstanding redemptions: %w", err)
		}
	}
	shares := make(map[string]sdkmath.Int, len(d.Shares))
	for holder, s := range d.Shares {
		parsed, err := parseAmount(s)
		if err != nil {
			return ledger.VaultDump{}, fmt.Errorf("vault shares of %s: %w", holder, err)
		}
		shares[holder] = parsed
	}
	return ledger.VaultDump{
		TotalAssets:            totalAssets,
		TotalShares:            totalShares,
		Shares:                 shares,
		OutstandingRedemptions: outstanding,
	}, nil
}
