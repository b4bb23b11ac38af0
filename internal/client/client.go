package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pickem/engine/internal/metrics"
	"pickem/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Provider kinds
const (
	KindSportsDataIO = "sportsdataio"
	KindCFBD         = "cfbd"
)

// Client fetches final scores from an external results provider
type Client struct {
	kind        string
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a provider client allowing up to concurrency requests in flight
func NewClient(kind, baseURL, apiKey string, timeout time.Duration, concurrency int) (*Client, error) {
	if kind != KindSportsDataIO && kind != KindCFBD {
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	rateLimiter := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		kind:        kind,
		baseURL:     baseURL,
		apiKey:      apiKey,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Kind returns the provider kind
func (c *Client) Kind() string {
	return c.kind
}

// FetchResults returns the provider's games for a season and scope in provider-neutral form
func (c *Client) FetchResults(ctx context.Context, season int, scope models.Scope) ([]models.ExternalGameResult, error) {
	payloads, err := c.fetchPayloads(ctx, season, scope)
	if err != nil {
		return nil, err
	}

	results := make([]models.ExternalGameResult, 0, len(payloads))
	for _, p := range payloads {
		results = append(results, p.ToExternalResult())
	}

	log.Debug().
		Str("provider", c.kind).
		Int("season", season).
		Str("scope", scope.String()).
		Int("games", len(results)).
		Msg("Fetched external results")

	return results, nil
}

func (c *Client) fetchPayloads(ctx context.Context, season int, scope models.Scope) ([]ProviderPayload, error) {
	switch c.kind {
	case KindCFBD:
		params := map[string]string{
			"year":       strconv.Itoa(season),
			"seasonType": "regular",
		}
		if scope.IsBowl() {
			params["seasonType"] = "postseason"
		} else {
			params["week"] = strconv.Itoa(scope.Week)
		}

		var games []CFBDGame
		if err := c.getJSON(ctx, "games", params, &games); err != nil {
			return nil, fmt.Errorf("failed to fetch cfbd games: %w", err)
		}
		return toPayloads(games), nil

	default:
		// SportsDataIO files bowl games under the POST season, week 1
		path := fmt.Sprintf("scores/json/GamesByWeek/%d/%d", season, scope.Week)
		if scope.IsBowl() {
			path = fmt.Sprintf("scores/json/GamesByWeek/%dPOST/1", season)
		}

		var scores []SportsDataIOScore
		if err := c.getJSON(ctx, path, nil, &scores); err != nil {
			return nil, fmt.Errorf("failed to fetch sportsdataio games: %w", err)
		}
		return toPayloads(scores), nil
	}
}

func toPayloads[T ProviderPayload](rows []T) []ProviderPayload {
	payloads := make([]ProviderPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, row)
	}
	return payloads
}

func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, dest any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// get performs a GET request with retry logic and rate limiting
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retry, err := c.do(ctx, url, params, attempt)
		if err == nil {
			metrics.RecordAPICall(path, "success", time.Since(start).Seconds())
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	metrics.RecordAPICall(path, "error", time.Since(start).Seconds())
	return nil, lastErr
}

// do performs one attempt and reports whether a failure is worth retrying
func (c *Client) do(ctx context.Context, url string, params map[string]string, attempt int) ([]byte, bool, error) {
	// Rate limiting: acquire semaphore
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pickem-engine/1.0")
	if c.kind == KindCFBD {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", url).
		Int("attempt", attempt+1).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, false, nil

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error, will retry")
		return nil, true, fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))

	case http.StatusUnauthorized, http.StatusForbidden:
		// Don't retry auth errors
		return nil, false, fmt.Errorf("API authentication failed (status %d): %s", resp.StatusCode, string(body))

	default:
		return nil, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
}
