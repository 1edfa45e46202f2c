package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

// The journal is write-behind: the in-memory core is the state of record and
// a failed journal write must not fail the operation that already settled.
// Failures are logged and surface through db latency metrics.
//
// Fulfillment marks are the one exception. The processed flag must be durable
// before any external effect, so those writes go through the core's commit
// hook and a failure there aborts the fulfillment.

func (s *Service) journalErr(ctx context.Context, what string, err error) {
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("document", what).Msg("journal write failed")
	}
}

func (s *Service) persistVault(ctx context.Context) {
	doc := model.NewVaultStateDocument(s.ledger.DumpVault())
	s.journalErr(ctx, "vault_state", s.db.UpsertVaultState(ctx, doc))
}

func (s *Service) persistRewards(ctx context.Context, user string) {
	global, hasGlobal := s.rewards.GlobalEntries()[user]
	perValidator := s.rewards.Entries()[user]

	if (!hasGlobal || global.IsZero()) && len(perValidator) == 0 {
		s.journalErr(ctx, "reward_entry", s.db.DeleteRewardEntry(ctx, user))
		return
	}

	doc := &model.RewardEntryDocument{User: user, Global: "0"}
	if hasGlobal {
		doc.Global = global.String()
	}
	if len(perValidator) > 0 {
		doc.PerValidator = make(map[string]string, len(perValidator))
		for validator, amount := range perValidator {
			doc.PerValidator[validator] = amount.String()
		}
	}
	s.journalErr(ctx, "reward_entry", s.db.UpsertRewardEntry(ctx, doc))
}

func (s *Service) persistFreeze(ctx context.Context) {
	window := s.ledger.Freeze()
	doc := &model.FreezeWindowDocument{
		FrozenUntil: window.FrozenUntil,
		Duration:    window.Duration,
	}
	s.journalErr(ctx, "freeze_window", s.db.UpsertFreezeWindow(ctx, doc))
}
