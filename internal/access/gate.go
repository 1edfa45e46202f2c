package access

import (
	"fmt"
	"sync"

	"github.com/nativestake/custody-ledger/internal/types"
)

// Operation names every public entry point of the ledger. The capability
// table maps these to roles; an operation absent from the table is open to
// any principal.
type Operation string

const (
	OpRequestStake        Operation = "request_stake"
	OpRequestUnstake      Operation = "request_unstake"
	OpRequestClaimRewards Operation = "request_claim_rewards"
	OpFulfillStake        Operation = "fulfill_stake"
	OpFulfillUnstake      Operation = "fulfill_unstake"
	OpFulfillClaimRewards Operation = "fulfill_claim_rewards"
	OpStakeAPR            Operation = "stake_apr"
	OpUnstakeAPR          Operation = "unstake_apr"
	OpClaimUnstakeAPR     Operation = "claim_unstake_apr"
	OpClaimRewardsAPR     Operation = "claim_rewards_apr"
	OpDeposit             Operation = "deposit"
	OpRedeem              Operation = "redeem"
	OpSeedVault           Operation = "seed_vault"
	OpCompoundRewards     Operation = "compound_rewards"
	OpSettleRedemptions   Operation = "settle_redemptions"
	OpTransferShares      Operation = "transfer_shares"
	OpSetFreeze           Operation = "set_freeze"
	OpThaw                Operation = "thaw"
	OpUpdateRewards       Operation = "update_rewards"
	OpPause               Operation = "pause"
	OpUnpause             Operation = "unpause"
)

func (o Operation) String() string {
	return string(o)
}

// Gate is a flat capability table checked once per operation entry. There is
// no role inheritance: a principal holds exactly the roles granted to it.
type Gate struct {
	mu             sync.RWMutex
	principalRoles map[string]map[string]struct{}
	capabilities   map[Operation]map[string]struct{}
	paused         bool
}

func NewGate(principalRoles, capabilities map[string][]string) *Gate {
	g := &Gate{
		principalRoles: make(map[string]map[string]struct{}, len(principalRoles)),
		capabilities:   make(map[Operation]map[string]struct{}, len(capabilities)),
	}
	for principal, roles := range principalRoles {
		set := make(map[string]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		g.principalRoles[principal] = set
	}
	for op, roles := range capabilities {
		set := make(map[string]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		g.capabilities[Operation(op)] = set
	}
	return g
}

// Authorize returns nil when the principal may invoke the operation.
func (g *Gate) Authorize(principal string, op Operation) *types.Error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	allowed, gated := g.capabilities[op]
	if !gated {
		return nil
	}
	for role := range g.principalRoles[principal] {
		if _, ok := allowed[role]; ok {
			return nil
		}
	}
	return types.NewAuthorizationError(
		fmt.Errorf("principal %q lacks a role required for %s", principal, op),
	)
}

// RequireActive rejects state-mutating operations while the ledger is paused.
func (g *Gate) RequireActive() *types.Error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.paused {
		return types.NewStateError(fmt.Errorf("ledger is paused"))
	}
	return nil
}

func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
}

func (g *Gate) Unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
}

func (g *Gate) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}
