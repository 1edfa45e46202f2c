package db

import (
	"context"
	"time"

	"github.com/nativestake/custody-ledger/internal/db/model"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) SaveStakeRequest(ctx context.Context, doc *model.StakeRequestDocument) error {
	return d.run("SaveStakeRequest", func() error {
		return d.db.SaveStakeRequest(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveUnstakeRequest(ctx context.Context, doc *model.UnstakeRequestDocument) error {
	return d.run("SaveUnstakeRequest", func() error {
		return d.db.SaveUnstakeRequest(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveRewardClaimRequest(ctx context.Context, doc *model.RewardClaimRequestDocument) error {
	return d.run("SaveRewardClaimRequest", func() error {
		return d.db.SaveRewardClaimRequest(ctx, doc)
	})
}

func (d *DbWithMetrics) MarkStakeRequestProcessed(ctx context.Context, id uint64) error {
	return d.run("MarkStakeRequestProcessed", func() error {
		return d.db.MarkStakeRequestProcessed(ctx, id)
	})
}

func (d *DbWithMetrics) MarkUnstakeRequestProcessed(ctx context.Context, id uint64, correlationID string) error {
	return d.run("MarkUnstakeRequestProcessed", func() error {
		return d.db.MarkUnstakeRequestProcessed(ctx, id, correlationID)
	})
}

func (d *DbWithMetrics) MarkRewardClaimRequestProcessed(ctx context.Context, id uint64, amount string) error {
	return d.run("MarkRewardClaimRequestProcessed", func() error {
		return d.db.MarkRewardClaimRequestProcessed(ctx, id, amount)
	})
}

func (d *DbWithMetrics) GetStakeRequests(ctx context.Context) (result []model.StakeRequestDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeRequests", func() error {
		result, err = d.db.GetStakeRequests(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) GetUnstakeRequests(ctx context.Context) (result []model.UnstakeRequestDocument, err error) {
	//nolint:errcheck
	d.run("GetUnstakeRequests", func() error {
		result, err = d.db.GetUnstakeRequests(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) GetRewardClaimRequests(ctx context.Context) (result []model.RewardClaimRequestDocument, err error) {
	//nolint:errcheck
	d.run("GetRewardClaimRequests", func() error {
		result, err = d.db.GetRewardClaimRequests(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertVaultState(ctx context.Context, doc *model.VaultStateDocument) error {
	return d.run("UpsertVaultState", func() error {
		return d.db.UpsertVaultState(ctx, doc)
	})
}

func (d *DbWithMetrics) GetVaultState(ctx context.Context) (result *model.VaultStateDocument, err error) {
	//nolint:errcheck
	d.run("GetVaultState", func() error {
		result, err = d.db.GetVaultState(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertRewardEntry(ctx context.Context, doc *model.RewardEntryDocument) error {
	return d.run("UpsertRewardEntry", func() error {
		return d.db.UpsertRewardEntry(ctx, doc)
	})
}

func (d *DbWithMetrics) DeleteRewardEntry(ctx context.Context, user string) error {
	return d.run("DeleteRewardEntry", func() error {
		return d.db.DeleteRewardEntry(ctx, user)
	})
}

func (d *DbWithMetrics) GetRewardEntries(ctx context.Context) (result []model.RewardEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetRewardEntries", func() error {
		result, err = d.db.GetRewardEntries(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertFreezeWindow(ctx context.Context, doc *model.FreezeWindowDocument) error {
	return d.run("UpsertFreezeWindow", func() error {
		return d.db.UpsertFreezeWindow(ctx, doc)
	})
}

func (d *DbWithMetrics) GetFreezeWindow(ctx context.Context) (result *model.FreezeWindowDocument, err error) {
	//nolint:errcheck
	d.run("GetFreezeWindow", func() error {
		result, err = d.db.GetFreezeWindow(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	outcome := metrics.Success
	if err != nil {
		outcome = metrics.Error
	}
	metrics.ObserveDbLatency(method, outcome, duration)
	return err
}
