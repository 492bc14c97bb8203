package samsara

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRetryAfter = 10 * time.Second
	serverErrorUnit   = 2 * time.Second
	maxErrorBody      = 512
)

// Pagination is the cursor block returned by paged endpoints
type Pagination struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// envelope is the raw response shape. Error is set instead of returning a Go
// error when the API could not be reached or refused the request.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func errorEnvelope(msg string) *envelope {
	return &envelope{Data: json.RawMessage("[]"), Error: msg}
}

// Client talks to the Samsara fleet API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	policy  *retry.Policy
	logger  *zap.Logger
}

// NewClient creates a Samsara API client
func NewClient(cfg config.SamsaraConfig, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		policy:  retry.NewPolicy(cfg.MaxAttempts),
		logger:  logger,
	}
}

// get issues a GET with the retry policy. 429 waits for Retry-After, 5xx and
// transport errors back off linearly, other statuses fail immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) *envelope {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var (
		result      *envelope
		transportEr bool
	)
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			transportEr = true
			c.logger.Warn("Samsara request failed", zap.String("endpoint", endpoint), zap.Int("attempt", attempt), zap.Error(err))
			return retry.After(retry.Linear(serverErrorUnit, attempt), err)
		}
		defer resp.Body.Close()
		transportEr = false

		switch {
		case resp.StatusCode == http.StatusOK:
			var env envelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				result = errorEnvelope(fmt.Sprintf("API Error: malformed response: %v", err))
				return nil
			}
			if len(env.Data) == 0 || string(env.Data) == "null" {
				c.logger.Warn("Samsara returned empty data", zap.String("endpoint", endpoint))
			}
			result = &env
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warn("Samsara rate limit exceeded", zap.String("endpoint", endpoint), zap.Duration("retry_after", wait))
			return retry.After(wait, fmt.Errorf("rate limited"))

		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			c.logger.Warn("Samsara server error",
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", body))
			return retry.After(retry.Linear(serverErrorUnit, attempt), fmt.Errorf("server error %d", resp.StatusCode))

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			c.logger.Error("Samsara request rejected",
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", body))
			result = errorEnvelope(fmt.Sprintf("API Error: %d", resp.StatusCode))
			return nil
		}
	})

	switch {
	case err == nil:
		return result
	case transportEr:
		return errorEnvelope(fmt.Sprintf("Request error: %v", err))
	case ctx.Err() != nil:
		return errorEnvelope(fmt.Sprintf("Request error: %v", ctx.Err()))
	default:
		return errorEnvelope("Max retries exceeded")
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds * float64(time.Second))
}
