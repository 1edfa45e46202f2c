package custodyclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/clients/client"
	"github.com/nativestake/custody-ledger/internal/config"
)

const (
	balanceEndpoint      = "/v1/token/balance"
	transferEndpoint     = "/v1/token/transfer"
	transferFromEndpoint = "/v1/token/transfer-from"
	depositEndpoint      = "/v1/token/deposit"
	withdrawEndpoint     = "/v1/token/withdraw"
)

// Client talks to the value custody token collaborator. Transfers are NOT
// retried: a timed-out transfer may have gone through, and replaying it
// would double-move funds. Only the read path retries.
type Client struct {
	httpClient *http.Client
	cfg        *config.CustodyConfig
}

func NewClient(cfg *config.CustodyConfig) *Client {
	if cfg == nil {
		return nil
	}
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) GetBaseURL() string {
	return c.cfg.Endpoint
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	return c.cfg.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func (c *Client) BalanceOf(ctx context.Context, account string) (sdkmath.Int, error) {
	type empty struct{}
	call := func() (*balanceResponse, error) {
		opts := &client.HttpClientOptions{
			Path:         balanceEndpoint + "?account=" + url.QueryEscape(account),
			TemplatePath: balanceEndpoint,
		}
		return client.SendRequest[empty, balanceResponse](ctx, c, http.MethodGet, opts, nil)
	}

	resp, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(client.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Err(err).
				Msg("transient custody client error, retrying")
		}))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("custody balance query failed: %w", err)
	}

	balance, ok := sdkmath.NewIntFromString(resp.Balance)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("malformed balance %q in custody response", resp.Balance)
	}
	return balance, nil
}

type movementRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

type movementResponse struct {
	Accepted bool `json:"accepted"`
}

func (c *Client) Transfer(ctx context.Context, to string, amount sdkmath.Int) error {
	return c.move(ctx, transferEndpoint, movementRequest{To: to, Amount: amount.String()})
}

func (c *Client) TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error {
	return c.move(ctx, transferFromEndpoint, movementRequest{From: from, To: to, Amount: amount.String()})
}

func (c *Client) Deposit(ctx context.Context, from string, amount sdkmath.Int) error {
	return c.move(ctx, depositEndpoint, movementRequest{From: from, Amount: amount.String()})
}

func (c *Client) Withdraw(ctx context.Context, to string, amount sdkmath.Int) error {
	return c.move(ctx, withdrawEndpoint, movementRequest{To: to, Amount: amount.String()})
}

func (c *Client) move(ctx context.Context, endpoint string, input movementRequest) error {
	opts := &client.HttpClientOptions{
		Path:         endpoint,
		TemplatePath: endpoint,
	}
	resp, err := client.SendRequest[movementRequest, movementResponse](ctx, c, http.MethodPost, opts, &input)
	if err != nil {
		return fmt.Errorf("custody call %s failed: %w", endpoint, err)
	}
	if !resp.Accepted {
		return fmt.Errorf("custody rejected %s", endpoint)
	}
	return nil
}
