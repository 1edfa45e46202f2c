package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HttpClient is implemented by every collaborator client so SendRequest can
// derive the target URL, the timeout and the underlying transport from it.
type HttpClient interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() time.Duration
	GetHttpClient() *http.Client
}

type HttpClientOptions struct {
	Path string
	// TemplatePath is the path with its parameters unexpanded, used for
	// logging and metrics so high-cardinality values stay out of labels.
	TemplatePath string
	Headers      map[string]string
}

// UnexpectedStatusError is returned when the collaborator answers with a
// non-2xx status. Callers use the status to decide whether a retry is
// worthwhile.
type UnexpectedStatusError struct {
	Status int
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// IsTransient reports whether the error is worth retrying: server-side
// failures and rate limiting, but never client errors.
func IsTransient(err error) bool {
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		// Network-level failures have no status; treat them as transient.
		return err != nil
	}
	return statusErr.Status >= http.StatusInternalServerError ||
		statusErr.Status == http.StatusTooManyRequests
}

// SendRequest performs a JSON request against the collaborator and decodes
// the response body into O. A nil input sends no body.
func SendRequest[I, O any](
	ctx context.Context,
	httpClient HttpClient,
	method string,
	opts *HttpClientOptions,
	input *I,
) (*O, error) {
	timeout := httpClient.GetDefaultRequestTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if input != nil {
		payload, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	url := httpClient.GetBaseURL() + opts.Path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", opts.TemplatePath, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.GetHttpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", opts.TemplatePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UnexpectedStatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	var output O
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", opts.TemplatePath, err)
	}
	return &output, nil
}
