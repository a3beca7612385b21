// Package coingecko implements the market-data provider client.
// It covers the two provider surfaces the jobs need: historical series
// (market_chart) and live market snapshots (coins/markets).
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"coin-tracker/internal/observability"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Default configuration values.
const (
	DefaultTimeout     = 20 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client is an HTTP client for the CoinGecko REST API.
// The API key is explicit construction-time configuration; no ambient
// environment state is consulted.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new CoinGecko API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MarketChart fetches the historical price/market-cap/volume series for one
// coin over the given lookback window. Granularity is chosen by the provider
// from the window size; the precision hint does not change it.
func (c *Client) MarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*MarketChart, error) {
	if coinID == "" {
		return nil, fmt.Errorf("market chart: empty coin id")
	}

	params := url.Values{}
	params.Set("vs_currency", vsCurrency)
	params.Set("days", strconv.Itoa(days))
	params.Set("precision", "full")

	var chart MarketChart
	if err := c.get(ctx, "market_chart", "/coins/"+url.PathEscape(coinID)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

// Markets fetches one page of the live market snapshot, ordered by market
// cap descending. An empty Category means the global snapshot.
func (c *Client) Markets(ctx context.Context, p MarketsParams) ([]MarketRow, error) {
	params := url.Values{}
	params.Set("vs_currency", p.VSCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(p.PerPage))
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("sparkline", "false")
	if p.Category != "" {
		params.Set("category", p.Category)
	}

	var rows []MarketRow
	if err := c.get(ctx, "markets", "/coins/markets", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// get performs a GET with retries and exponential backoff. Transport errors,
// 429 and 5xx responses are retried; other non-200 statuses are not.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	start := time.Now()
	defer func() {
		observability.RecordProviderRequest(endpoint, time.Since(start).Seconds(), lastErr)
	}()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				return lastErr
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("create request: %w", err)
			return lastErr
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			return lastErr
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			return lastErr
		}

		lastErr = nil
		return nil
	}

	lastErr = fmt.Errorf("max retries exceeded: %w", lastErr)
	return lastErr
}
