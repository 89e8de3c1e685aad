// Package openrouter is the HTTP client for the OpenRouter metering API:
// account credits, per-key usage and the usage-activity log.
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/orwatch/orwatch/internal/core"
	"github.com/orwatch/orwatch/internal/logging"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultTimeout  = 15 * time.Second
	errorBodySample = 512
)

// Client issues authenticated GETs against one account's metering resources.
// The API key is held privately and never written to any diagnostic record.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logging.Component("openrouter"),
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests, custom transports).
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// Credits fetches the account balance from /credits.
func (c *Client) Credits(ctx context.Context) (core.Balance, error) {
	var resp creditsResponse
	if err := c.getJSON(ctx, "/credits", &resp); err != nil {
		return core.Balance{}, err
	}
	return core.Balance{
		TotalCredits: resp.Data.TotalCredits,
		TotalUsage:   resp.Data.TotalUsage,
	}, nil
}

// Key fetches the calling key's own usage record from /key. It is the
// fallback resource when the all-keys listing is unavailable.
func (c *Client) Key(ctx context.Context) (core.KeyUsage, error) {
	var resp keyResponse
	if err := c.getJSON(ctx, "/key", &resp); err != nil {
		return core.KeyUsage{}, err
	}
	return resp.Data.toKeyUsage(), nil
}

// Keys fetches all keys from /keys, drops disabled entries and orders the
// rest most-recently-active first.
func (c *Client) Keys(ctx context.Context) ([]core.KeyUsage, error) {
	var resp keysResponse
	if err := c.getJSON(ctx, "/keys", &resp); err != nil {
		return nil, err
	}

	keys := lo.FilterMap(resp.Data, func(r keyRecord, _ int) (core.KeyUsage, bool) {
		k := r.toKeyUsage()
		return k, !k.Disabled
	})
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].LastActivity.After(keys[j].LastActivity)
	})
	return keys, nil
}

// Activity fetches the recent usage-activity records from /activity. The
// upstream bounds the lookback window.
func (c *Client) Activity(ctx context.Context) ([]core.Activity, error) {
	var resp activityResponse
	if err := c.getJSON(ctx, "/activity", &resp); err != nil {
		return nil, err
	}
	return lo.Map(resp.Data, func(r activityRecord, _ int) core.Activity {
		return r.toActivity()
	}), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Msg("call_start")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Str("path", path).Err(err).Msg("call_error")
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn().Str("path", path).Err(err).Msg("call_error")
		return &TransportError{Err: fmt.Errorf("reading body: %w", err)}
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("call_response")

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := classifyAPIError(resp.StatusCode, body)
		c.log.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body_sample", sampleBody(body)).
			Msg("call_error")
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.log.Warn().Str("path", path).Err(err).Msg("call_error")
		return &DecodeError{Err: err}
	}
	return nil
}

// classifyAPIError prefers the structured error envelope, then the raw body,
// then a synthesized status-coded message.
func classifyAPIError(status int, body []byte) *APIError {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{StatusCode: status, Message: envelope.Error.Message}
	}

	if msg := strings.TrimSpace(string(body)); msg != "" {
		return &APIError{StatusCode: status, Message: sampleBody([]byte(msg))}
	}

	return &APIError{StatusCode: status, Message: fmt.Sprintf("request failed with status %d", status)}
}

func sampleBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodySample {
		s = s[:errorBodySample]
	}
	return s
}
