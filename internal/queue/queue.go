package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/config"
	"github.com/nativestake/custody-ledger/internal/observability/metrics"
)

const publishTimeout = 5 * time.Second

// Event is one settlement fact published to the exchange. Amounts are
// base-10 strings for the same precision reason they are in the journal.
type Event struct {
	Type          string    `json:"type"`
	User          string    `json:"user"`
	Amount        string    `json:"amount,omitempty"`
	Validator     string    `json:"validator,omitempty"`
	Mode          string    `json:"mode,omitempty"`
	RequestID     *uint64   `json:"request_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	EventStakeRequested   = "stake_requested"
	EventStakeFulfilled   = "stake_fulfilled"
	EventUnstakeRequested = "unstake_requested"
	EventUnstakeFulfilled = "unstake_fulfilled"
	EventClaimRequested   = "claim_requested"
	EventClaimFulfilled   = "claim_fulfilled"
	EventDirectStake      = "direct_stake"
	EventDirectUnstake    = "direct_unstake"
	EventUnstakeClaimed   = "unstake_claimed"
	EventRewardsClaimed   = "rewards_claimed"
	EventVaultDeposit     = "vault_deposit"
	EventVaultRedeem      = "vault_redeem"
)

type QueueInterface interface {
	Publish(ctx context.Context, event Event)
	Shutdown() error
}

// Client publishes settlement events to a topic exchange. Publishing is
// best-effort: a failed publish is logged and counted, never surfaced to the
// operation that produced the event.
type Client struct {
	exchangeName string
	connection   *amqp.Connection
	channel      *amqp.Channel
}

func NewClient(cfg *config.QueueConfig) (*Client, error) {
	connection, err := amqp.DialConfig(cfg.Url, amqp.Config{
		SASL: []amqp.Authentication{
			&amqp.PlainAuth{Username: cfg.QueueUser, Password: cfg.QueuePassword},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.ExchangeName, err)
	}

	return &Client{
		exchangeName: cfg.ExchangeName,
		connection:   connection,
		channel:      channel,
	}, nil
}

// Publish sends the event with its type as routing key.
func (c *Client) Publish(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	body, err := json.Marshal(event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("type", event.Type).Msg("failed to marshal settlement event")
		metrics.RecordQueuePublishError()
		return
	}

	err = c.channel.PublishWithContext(ctx,
		c.exchangeName,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("type", event.Type).Msg("failed to publish settlement event")
		metrics.RecordQueuePublishError()
	}
}

func (c *Client) Shutdown() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.connection.Close()
}

var _ QueueInterface = (*Client)(nil)
