package oracle

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/types"
)

// RewardLedger tracks claimable APR-mode rewards per user and per
// (user, validator). It is written only by the privileged reward updater and
// drained by the claim paths.
type RewardLedger struct {
	mu           sync.RWMutex
	global       map[string]sdkmath.Int
	perValidator map[string]map[string]sdkmath.Int
}

func NewRewardLedger() *RewardLedger {
	return &RewardLedger{
		global:       make(map[string]sdkmath.Int),
		perValidator: make(map[string]map[string]sdkmath.Int),
	}
}

func (l *RewardLedger) Credit(user string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.global[user] = l.claimableLocked(user).Add(amount)
}

func (l *RewardLedger) CreditForValidator(user, validator string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byValidator, ok := l.perValidator[user]
	if !ok {
		byValidator = make(map[string]sdkmath.Int)
		l.perValidator[user] = byValidator
	}
	current, ok := byValidator[validator]
	if !ok {
		current = sdkmath.ZeroInt()
	}
	byValidator[validator] = current.Add(amount)
	l.global[user] = l.claimableLocked(user).Add(amount)
}

func (l *RewardLedger) Claimable(user string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimableLocked(user)
}

func (l *RewardLedger) ClaimableForValidator(user, validator string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if amount, ok := l.perValidator[user][validator]; ok {
		return amount
	}
	return sdkmath.ZeroInt()
}

// Clear zeroes the user's global claimable balance, including every
// per-validator bucket, and returns the cleared amount.
func (l *RewardLedger) Clear(user string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cleared := l.claimableLocked(user)
	delete(l.global, user)
	delete(l.perValidator, user)
	return cleared
}

// Decrease lowers the user's claimable balance for one validator, keeping
// the global balance consistent.
func (l *RewardLedger) Decrease(user, validator string, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.perValidator[user][validator]
	if !ok || current.LT(amount) {
		return types.NewValidationError(
			fmt.Errorf("claimable balance for user %s validator %s is below %s", user, validator, amount),
		)
	}
	l.perValidator[user][validator] = current.Sub(amount)
	l.global[user] = l.claimableLocked(user).Sub(amount)
	return nil
}

func (l *RewardLedger) claimableLocked(user string) sdkmath.Int {
	if amount, ok := l.global[user]; ok {
		return amount
	}
	return sdkmath.ZeroInt()
}

// RewardSnapshot is a deep copy used for all-or-nothing rollback.
type RewardSnapshot struct {
	global       map[string]sdkmath.Int
	perValidator map[string]map[string]sdkmath.Int
}

func (l *RewardLedger) Snapshot() *RewardSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := &RewardSnapshot{
		global:       make(map[string]sdkmath.Int, len(l.global)),
		perValidator: make(map[string]map[string]sdkmath.Int, len(l.perValidator)),
	}
	for user, amount := range l.global {
		snap.global[user] = amount
	}
	for user, byValidator := range l.perValidator {
		copied := make(map[string]sdkmath.Int, len(byValidator))
		for validator, amount := range byValidator {
			copied[validator] = amount
		}
		snap.perValidator[user] = copied
	}
	return snap
}

func (l *RewardLedger) Restore(snap *RewardSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.global = make(map[string]sdkmath.Int, len(snap.global))
	for user, amount := range snap.global {
		l.global[user] = amount
	}
	l.perValidator = make(map[string]map[string]sdkmath.Int, len(snap.perValidator))
	for user, byValidator := range snap.perValidator {
		copied := make(map[string]sdkmath.Int, len(byValidator))
		for validator, amount := range byValidator {
			copied[validator] = amount
		}
		l.perValidator[user] = copied
	}
}

// Entries returns a stable copy of every per-validator claimable balance,
// used by the journal writer.
func (l *RewardLedger) Entries() map[string]map[string]sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]map[string]sdkmath.Int, len(l.perValidator))
	for user, byValidator := range l.perValidator {
		copied := make(map[string]sdkmath.Int, len(byValidator))
		for validator, amount := range byValidator {
			copied[validator] = amount
		}
		out[user] = copied
	}
	return out
}

// GlobalEntries returns a copy of every global claimable balance.
func (l *RewardLedger) GlobalEntries() map[string]sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]sdkmath.Int, len(l.global))
	for user, amount := range l.global {
		out[user] = amount
	}
	return out
}
