package oracleclient

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
	"github.com/nativestake/custody-ledger/internal/oracle"
)

const (
	priceEndpoint     = "/v1/oracle/price"
	aprEndpoint       = "/v1/oracle/apr"
	apyEndpoint       = "/v1/oracle/apy"
	unbondingEndpoint = "/v1/oracle/unbonding-period"
	rewardsEndpoint   = "/v1/oracle/rewards"
	launchEndpoint    = "/v1/oracle/launch-timestamp"
)

// Client reads one oracle data source over HTTP. Two instances are built
// from the same config, one per endpoint, and handed to the oracle adapter
// as primary and fallback.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	cfg        *config.OracleConfig
}

// NewPrimaryClient builds the client for the primary endpoint.
func NewPrimaryClient(cfg *config.OracleConfig) *Client {
	if cfg == nil {
		return nil
	}
	return newClient("primary", cfg.PrimaryEndpoint, cfg)
}

// NewFallbackClient builds the client for the fallback endpoint, or nil when
// no fallback is configured.
func NewFallbackClient(cfg *config.OracleConfig) *Client {
	if cfg == nil || cfg.FallbackEndpoint == "" {
		return nil
	}
	return newClient("fallback", cfg.FallbackEndpoint, cfg)
}

func newClient(name, baseURL string, cfg *config.OracleConfig) *Client {
	return &Client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	return c.cfg.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

type priceResponse struct {
	// Price is an integer with 8 fractional digits of precision.
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

func (c *Client) GetPrice(ctx context.Context, asset string) (*oracle.PriceReading, error) {
	resp, err := get[priceResponse](ctx, c, priceEndpoint, "?asset="+url.QueryEscape(asset))
	if err != nil {
		return nil, err
	}
	price, ok := sdkmath.NewIntFromString(resp.Price)
	if !ok {
		return nil, fmt.Errorf("malformed price %q from %s source", resp.Price, c.name)
	}
	return &oracle.PriceReading{
		Price:     price,
		Timestamp: time.Unix(resp.Timestamp, 0).UTC(),
	}, nil
}

type rateResponse struct {
	Rate      string `json:"rate"`
	Timestamp int64  `json:"timestamp"`
}

func (c *Client) GetCurrentAPR(ctx context.Context) (*oracle.RateReading, error) {
	return c.getRate(ctx, aprEndpoint)
}

func (c *Client) GetCurrentAPY(ctx context.Context) (*oracle.RateReading, error) {
	return c.getRate(ctx, apyEndpoint)
}

func (c *Client) getRate(ctx context.Context, endpoint string) (*oracle.RateReading, error) {
	resp, err := get[rateResponse](ctx, c, endpoint, "")
	if err != nil {
		return nil, err
	}
	rate, err := sdkmath.LegacyNewDecFromStr(resp.Rate)
	if err != nil {
		return nil, fmt.Errorf("malformed rate %q from %s source: %w", resp.Rate, c.name, err)
	}
	return &oracle.RateReading{
		Rate:      rate,
		Timestamp: time.Unix(resp.Timestamp, 0).UTC(),
	}, nil
}

type unbondingResponse struct {
	PeriodSeconds int64 `json:"period_seconds"`
	Timestamp     int64 `json:"timestamp"`
}

func (c *Client) GetUnbondingPeriod(ctx context.Context) (*oracle.DurationReading, error) {
	resp, err := get[unbondingResponse](ctx, c, unbondingEndpoint, "")
	if err != nil {
		return nil, err
	}
	return &oracle.DurationReading{
		Period:    time.Duration(resp.PeriodSeconds) * time.Second,
		Timestamp: time.Unix(resp.Timestamp, 0).UTC(),
	}, nil
}

type rewardsResponse struct {
	Amount        string `json:"amount"`
	PeriodSeconds int64  `json:"period_seconds"`
	Timestamp     int64  `json:"timestamp"`
}

func (c *Client) GetRewards(ctx context.Context) (*oracle.RewardsReading, error) {
	resp, err := get[rewardsResponse](ctx, c, rewardsEndpoint, "")
	if err != nil {
		return nil, err
	}
	amount, ok := sdkmath.NewIntFromString(resp.Amount)
	if !ok {
		return nil, fmt.Errorf("malformed rewards amount %q from %s source", resp.Amount, c.name)
	}
	return &oracle.RewardsReading{
		Amount:    amount,
		Period:    time.Duration(resp.PeriodSeconds) * time.Second,
		Timestamp: time.Unix(resp.Timestamp, 0).UTC(),
	}, nil
}

type launchResponse struct {
	Timestamp int64 `json:"timestamp"`
}

func (c *Client) GetLaunchTimestamp(ctx context.Context) (time.Time, error) {
	resp, err := get[launchResponse](ctx, c, launchEndpoint, "")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(resp.Timestamp, 0).UTC(), nil
}

func get[T any](ctx context.Context, c *Client, endpoint, query string) (*T, error) {
	type empty struct{}
	call := func() (*T, error) {
		opts := &client.HttpClientOptions{
			Path:         endpoint + query,
			TemplatePath: endpoint,
		}
		return client.SendRequest[empty, T](ctx, c, http.MethodGet, opts, nil)
	}

	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(client.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Str("source", c.name).
				Err(err).
				Msg("transient oracle client error, retrying")
		}))
	if err != nil {
		return nil, fmt.Errorf("oracle query %s against %s source failed: %w", endpoint, c.name, err)
	}
	return result, nil
}

var _ oracle.Source = (*Client)(nil)
