package delegationclient

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
	"github.com/nativestake/custody-ledger/internal/ledger"
)

const (
	stakeEndpoint          = "/v1/delegations/stake"
	unstakeEndpoint        = "/v1/delegations/unstake"
	claimUnstakeEndpoint   = "/v1/delegations/unstake/claim"
	totalStakeEndpoint     = "/v1/delegations/total-stake"
	pendingRewardsEndpoint = "/v1/delegations/pending-rewards"
	unstakeRequestEndpoint = "/v1/delegations/unstake-requests"
)

// Client talks to the validator-delegation collaborator over HTTP. Amounts
// cross the wire as base-10 strings to avoid JSON number precision loss.
// Stake, unstake and claim calls are sent exactly once: a timed-out call may
// have been applied server-side, and replaying it would move funds twice.
// Only the read path retries.
type Client struct {
	httpClient *http.Client
	cfg        *config.DelegationConfig
}

func NewClient(cfg *config.DelegationConfig) *Client {
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

type stakeRequest struct {
	User      string `json:"user"`
	Amount    string `json:"amount"`
	Validator string `json:"validator"`
}

type stakeResponse struct {
	Accepted bool `json:"accepted"`
}

func (c *Client) Stake(ctx context.Context, user string, amount sdkmath.Int, validator string) error {
	opts := &client.HttpClientOptions{
		Path:         stakeEndpoint,
		TemplatePath: stakeEndpoint,
	}
	input := &stakeRequest{User: user, Amount: amount.String(), Validator: validator}
	resp, err := client.SendRequest[stakeRequest, stakeResponse](ctx, c, http.MethodPost, opts, input)
	if err != nil {
		return fmt.Errorf("delegation stake call failed: %w", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("delegation layer rejected stake for %q", user)
	}
	return nil
}

type unstakeRequest struct {
	User      string `json:"user"`
	Amount    string `json:"amount"`
	Validator string `json:"validator"`
}

type unstakeResponse struct {
	CorrelationID string `json:"correlation_id"`
}

func (c *Client) Unstake(ctx context.Context, user string, amount sdkmath.Int, validator string) (string, error) {
	opts := &client.HttpClientOptions{
		Path:         unstakeEndpoint,
		TemplatePath: unstakeEndpoint,
	}
	input := &unstakeRequest{User: user, Amount: amount.String(), Validator: validator}
	resp, err := client.SendRequest[unstakeRequest, unstakeResponse](ctx, c, http.MethodPost, opts, input)
	if err != nil {
		return "", fmt.Errorf("delegation unstake call failed: %w", err)
	}
	if resp.CorrelationID == "" {
		return "", fmt.Errorf("delegation layer returned no correlation id for %q", user)
	}
	return resp.CorrelationID, nil
}

type claimUnstakeRequest struct {
	User          string `json:"user"`
	CorrelationID string `json:"correlation_id"`
}

type claimUnstakeResponse struct {
	Amount string `json:"amount"`
}

func (c *Client) ClaimUnstake(ctx context.Context, user, correlationID string) (sdkmath.Int, error) {
	opts := &client.HttpClientOptions{
		Path:         claimUnstakeEndpoint,
		TemplatePath: claimUnstakeEndpoint,
	}
	input := &claimUnstakeRequest{User: user, CorrelationID: correlationID}
	resp, err := client.SendRequest[claimUnstakeRequest, claimUnstakeResponse](ctx, c, http.MethodPost, opts, input)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("delegation claim call failed: %w", err)
	}
	return parseAmount(resp.Amount)
}

type amountResponse struct {
	Amount string `json:"amount"`
}

func (c *Client) GetTotalStake(ctx context.Context, user string) (sdkmath.Int, error) {
	return c.getAmount(ctx, totalStakeEndpoint, user)
}

func (c *Client) GetPendingRewards(ctx context.Context, user string) (sdkmath.Int, error) {
	return c.getAmount(ctx, pendingRewardsEndpoint, user)
}

func (c *Client) getAmount(ctx context.Context, endpoint, user string) (sdkmath.Int, error) {
	type empty struct{}
	call := func() (*amountResponse, error) {
		opts := &client.HttpClientOptions{
			Path:         endpoint + "?user=" + url.QueryEscape(user),
			TemplatePath: endpoint,
		}
		return client.SendRequest[empty, amountResponse](ctx, c, http.MethodGet, opts, nil)
	}

	resp, err := clientCallWithRetry(ctx, call, c.cfg.MaxRetryTimes, c.cfg.RetryInterval)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("delegation query %s failed: %w", endpoint, err)
	}
	return parseAmount(resp.Amount)
}

type unstakeRequestResponse struct {
	Validator string `json:"validator"`
	Amount    string `json:"amount"`
}

func (c *Client) GetUnstakeRequest(ctx context.Context, correlationID string) (*ledger.UnstakeRequestInfo, error) {
	type empty struct{}
	call := func() (*unstakeRequestResponse, error) {
		opts := &client.HttpClientOptions{
			Path:         unstakeRequestEndpoint + "/" + url.PathEscape(correlationID),
			TemplatePath: unstakeRequestEndpoint,
		}
		return client.SendRequest[empty, unstakeRequestResponse](ctx, c, http.MethodGet, opts, nil)
	}

	resp, err := clientCallWithRetry(ctx, call, c.cfg.MaxRetryTimes, c.cfg.RetryInterval)
	if err != nil {
		return nil, fmt.Errorf("delegation unstake-request lookup failed: %w", err)
	}
	amount, err := parseAmount(resp.Amount)
	if err != nil {
		return nil, err
	}
	return &ledger.UnstakeRequestInfo{Validator: resp.Validator, Amount: amount}, nil
}

func parseAmount(s string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("malformed amount %q in delegation response", s)
	}
	return amount, nil
}

// clientCallWithRetry wraps idempotent reads. Fund-moving calls go out once.
func clientCallWithRetry[T any](
	ctx context.Context,
	call retry.RetryableFuncWithData[*T],
	maxRetryTimes uint,
	retryInterval time.Duration,
) (*T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(maxRetryTimes),
		retry.Delay(retryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(client.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", maxRetryTimes).
				Err(err).
				Msg("transient delegation client error, retrying with exponential backoff")
		}))
	if err != nil {
		return nil, err
	}
	return result, nil
}
