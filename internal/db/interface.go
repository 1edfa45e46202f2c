package db

import (
	"context"

	"github.com/nativestake/custody-ledger/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error

	SaveStakeRequest(ctx context.Context, doc *model.StakeRequestDocument) error
	SaveUnstakeRequest(ctx context.Context, doc *model.UnstakeRequestDocument) error
	SaveRewardClaimRequest(ctx context.Context, doc *model.RewardClaimRequestDocument) error
	MarkStakeRequestProcessed(ctx context.Context, id uint64) error
	MarkUnstakeRequestProcessed(ctx context.Context, id uint64, correlationID string) error
	MarkRewardClaimRequestProcessed(ctx context.Context, id uint64, amount string) error
	GetStakeRequests(ctx context.Context) ([]model.StakeRequestDocument, error)
	GetUnstakeRequests(ctx context.Context) ([]model.UnstakeRequestDocument, error)
	GetRewardClaimRequests(ctx context.Context) ([]model.RewardClaimRequestDocument, error)

	UpsertVaultState(ctx context.Context, doc *model.VaultStateDocument) error
	GetVaultState(ctx context.Context) (*model.VaultStateDocument, error)

	UpsertRewardEntry(ctx context.Context, doc *model.RewardEntryDocument) error
	DeleteRewardEntry(ctx context.Context, user string) error
	GetRewardEntries(ctx context.Context) ([]model.RewardEntryDocument, error)

	UpsertFreezeWindow(ctx context.Context, doc *model.FreezeWindowDocument) error
	GetFreezeWindow(ctx context.Context) (*model.FreezeWindowDocument, error)
}

var _ DbInterface = (*Database)(nil)
var _ DbInterface = (*DbWithMetrics)(nil)
