package services

import (
	"context"
	"time"

	"github.com/nativestake/custody-ledger/internal/access"
	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/db"
	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
	"github.com/nativestake/custody-ledger/internal/oracle"
	"github.com/nativestake/custody-ledger/internal/queue"
)

// Service is the operation surface of the ledger: every public entry point
// passes the access gate, runs the settlement core, journals the outcome and
// publishes a settlement event.
type Service struct {
	cfg     *config.Config
	db      db.DbInterface
	ledger  *ledger.Ledger
	rewards *oracle.RewardLedger
	oracle  *oracle.Adapter
	gate    *access.Gate
	queue   queue.QueueInterface
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	ledgerCore *ledger.Ledger,
	rewards *oracle.RewardLedger,
	oracleAdapter *oracle.Adapter,
	gate *access.Gate,
	q queue.QueueInterface,
) *Service {
	return &Service{
		cfg:     cfg,
		db:      db,
		ledger:  ledgerCore,
		rewards: rewards,
		oracle:  oracleAdapter,
		gate:    gate,
		queue:   q,
	}
}

// guard applies the pause flag and the capability table. Control-plane
// operations call authorize directly so an operator can always unpause.
func (s *Service) guard(principal string, op access.Operation) error {
	if err := s.gate.RequireActive(); err != nil {
		return err
	}
	return s.authorize(principal, op)
}

func (s *Service) authorize(principal string, op access.Operation) error {
	if err := s.gate.Authorize(principal, op); err != nil {
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event queue.Event) {
	if s.queue == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.queue.Publish(ctx, event)
}

// run wraps one operation with the duration histogram.
func run[T any](op access.Operation, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	outcome := metrics.Success
	if err != nil {
		outcome = metrics.Error
	}
	metrics.ObserveOperationDuration(op.String(), outcome, duration)
	return v, err
}
