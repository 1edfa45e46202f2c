package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/types"
)

// Poller runs one named background task on a fixed interval until the context
// is cancelled or Stop is called.
type Poller struct {
	name       string
	interval   time.Duration
	quit       chan struct{}
	pollMethod func(ctx context.Context) *types.Error
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) *types.Error) *Poller {
	return &Poller{
		name:       name,
		interval:   interval,
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Ctx(ctx).Info().
		Str("poller", p.name).
		Str("interval", p.interval.String()).
		Msg("starting poller")

	for {
		select {
		case <-ticker.C:
			if err := p.pollMethod(ctx); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("poller", p.name).Msg("poll failed")
			}
		case <-ctx.Done():
			log.Ctx(ctx).Info().Str("poller", p.name).Msg("poller stopped, context cancelled")
			return
		case <-p.quit:
			log.Ctx(ctx).Info().Str("poller", p.name).Msg("poller stopped")
			return
		}
	}
}

func (p *Poller) Stop() {
	close(p.quit)
}
