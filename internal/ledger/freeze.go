package ledger

import (
	"fmt"
	"time"

	"github.com/nativestake/custody-ledger/internal/types"
)

// FreezeWindow gates unstaking. While now < FrozenUntil every unstake
// request is rejected.
type FreezeWindow struct {
	FrozenUntil time.Time
	Duration    time.Duration
}

// SetFreeze opens a freeze window of the given duration starting now.
func (l *Ledger) SetFreeze(duration time.Duration) (FreezeWindow, error) {
	if duration <= 0 {
		return FreezeWindow{}, types.NewValidationError(fmt.Errorf("freeze duration must be positive"))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.freeze = FreezeWindow{
		FrozenUntil: l.now().Add(duration),
		Duration:    duration,
	}
	return l.freeze, nil
}

// Thaw ends the freeze window early.
func (l *Ledger) Thaw() FreezeWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.freeze.FrozenUntil = l.now()
	return l.freeze
}

// Freeze returns the current window.
func (l *Ledger) Freeze() FreezeWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.freeze
}

func (l *Ledger) requireThawed() error {
	if l.now().Before(l.freeze.FrozenUntil) {
		return types.NewStateError(
			fmt.Errorf("unstaking is frozen until %s", l.freeze.FrozenUntil.Format(time.RFC3339)),
		)
	}
	return nil
}
