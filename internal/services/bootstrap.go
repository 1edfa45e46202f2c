package services

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/db"
	"github.com/nativestake/custody-ledger/internal/ledger"
)

// RestoreFromJournal reloads the request books, vault state, reward ledger
// and freeze window from the journal. It runs once at boot, before the
// service starts serving, so a restart preserves request ids and processed
// flags.
func (s *Service) RestoreFromJournal(ctx context.Context) error {
	stakeDocs, err := s.db.GetStakeRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stake book: %w", err)
	}
	stake := make([]ledger.StakeRequest, 0, len(stakeDocs))
	for i := range stakeDocs {
		req, err := stakeDocs[i].ToRequest()
		if err != nil {
			return err
		}
		stake = append(stake, req)
	}
	stake, missing := densify(stake,
		func(r ledger.StakeRequest) uint64 { return r.ID },
		func(id uint64) ledger.StakeRequest {
			return ledger.StakeRequest{ID: id, Amount: sdkmath.ZeroInt(), Processed: true}
		})
	logQuarantined(ctx, "stake", missing)

	unstakeDocs, err := s.db.GetUnstakeRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to load unstake book: %w", err)
	}
	unstake := make([]ledger.UnstakeRequest, 0, len(unstakeDocs))
	for i := range unstakeDocs {
		req, err := unstakeDocs[i].ToRequest()
		if err != nil {
			return err
		}
		unstake = append(unstake, req)
	}
	unstake, missing = densify(unstake,
		func(r ledger.UnstakeRequest) uint64 { return r.ID },
		func(id uint64) ledger.UnstakeRequest {
			return ledger.UnstakeRequest{ID: id, Amount: sdkmath.ZeroInt(), Processed: true}
		})
	logQuarantined(ctx, "unstake", missing)

	claimDocs, err := s.db.GetRewardClaimRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to load claim book: %w", err)
	}
	claims := make([]ledger.RewardClaimRequest, 0, len(claimDocs))
	for i := range claimDocs {
		req, err := claimDocs[i].ToRequest()
		if err != nil {
			return err
		}
		claims = append(claims, req)
	}
	claims, missing = densify(claims,
		func(r ledger.RewardClaimRequest) uint64 { return r.ID },
		func(id uint64) ledger.RewardClaimRequest {
			return ledger.RewardClaimRequest{ID: id, Amount: sdkmath.ZeroInt(), Processed: true}
		})
	logQuarantined(ctx, "claim", missing)

	vault := ledger.VaultDump{}
	vaultDoc, err := s.db.GetVaultState(ctx)
	switch {
	case err == nil:
		if vault, err = vaultDoc.ToDump(); err != nil {
			return err
		}
	case db.IsNotFoundError(err):
		// First boot: the vault starts unseeded.
	default:
		return fmt.Errorf("failed to load vault state: %w", err)
	}

	freeze := ledger.FreezeWindow{}
	freezeDoc, err := s.db.GetFreezeWindow(ctx)
	switch {
	case err == nil:
		freeze.FrozenUntil = freezeDoc.FrozenUntil
		freeze.Duration = freezeDoc.Duration
	case db.IsNotFoundError(err):
	default:
		return fmt.Errorf("failed to load freeze window: %w", err)
	}

	if err := s.ledger.Load(stake, unstake, claims, vault, freeze); err != nil {
		return fmt.Errorf("journal is inconsistent: %w", err)
	}

	if err := s.restoreRewards(ctx); err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Int("stake_requests", len(stake)).
		Int("unstake_requests", len(unstake)).
		Int("claim_requests", len(claims)).
		Msg("restored ledger state from journal")
	s.recordPending()
	return nil
}

// densify fills journal gaps with processed placeholders so a missed
// write-behind request save cannot block recovery. A placeholder can never be
// fulfilled; the ids are reported for operator review.
func densify[T any](in []T, id func(T) uint64, placeholder func(uint64) T) (out []T, missing []uint64) {
	out = make([]T, 0, len(in))
	for _, entry := range in {
		for next := uint64(len(out)); next < id(entry); next++ {
			out = append(out, placeholder(next))
			missing = append(missing, next)
		}
		out = append(out, entry)
	}
	return out, missing
}

func logQuarantined(ctx context.Context, book string, missing []uint64) {
	if len(missing) == 0 {
		return
	}
	log.Ctx(ctx).Warn().
		Str("book", book).
		Uints64("ids", missing).
		Msg("journal has gaps, missing requests quarantined as processed")
}

func (s *Service) restoreRewards(ctx context.Context) error {
	entries, err := s.db.GetRewardEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reward entries: %w", err)
	}
	for _, entry := range entries {
		global, ok := sdkmath.NewIntFromString(entry.Global)
		if !ok {
			return fmt.Errorf("malformed global reward balance %q for %s", entry.Global, entry.User)
		}
		attributed := sdkmath.ZeroInt()
		for validator, raw := range entry.PerValidator {
			amount, ok := sdkmath.NewIntFromString(raw)
			if !ok {
				return fmt.Errorf("malformed reward balance %q for %s/%s", raw, entry.User, validator)
			}
			s.rewards.CreditForValidator(entry.User, validator, amount)
			attributed = attributed.Add(amount)
		}
		// The unattributed remainder goes to the global bucket.
		if remainder := global.Sub(attributed); remainder.IsPositive() {
			s.rewards.Credit(entry.User, remainder)
		}
	}
	return nil
}
