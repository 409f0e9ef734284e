// Package vendorapi implements the HTTP client for the trading partner's
// vendor API: order retrieval, acknowledgment and invoice transmission, and
// remittance downloads.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vendor-pipeline/internal/config"
	"vendor-pipeline/internal/core"
)

const maxAttempts = 3

// Client talks to the partner vendor API. All outbound calls share one
// pacing gate: the partner rate-limits per seller account, not per
// endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient creates a vendor API client from configuration.
func NewClient(cfg config.VendorAPIConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      logger,
		minInterval: cfg.MinInterval,
	}
}

// apiError is the partner's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// pace blocks until minInterval has passed since the previous request.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	c.lastRequest = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do performs one paced, retried API call. Responses are decoded into out
// when non-nil. Duplicate submissions surface as core.ErrAlreadyProcessed;
// rate limits and server errors are retried with the partner's backoff
// hint, then wrapped as core.TransientError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", path, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.pace(ctx); err != nil {
			return err
		}

		err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var te *core.TransientError
		if !errors.As(err, &te) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		backoff := time.Duration(attempt) * time.Second
		if te.RetryAfter > 0 {
			backoff = te.RetryAfter
		}
		c.logger.Warn("vendor API call failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	url := c.baseURL + path

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.TransientError{Err: fmt.Errorf("execute %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.TransientError{Err: fmt.Errorf("read response from %s: %w", path, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict:
		return core.ErrAlreadyProcessed
	case resp.StatusCode == http.StatusTooManyRequests:
		return &core.TransientError{
			Err:        fmt.Errorf("rate limited on %s", path),
			RetryAfter: retryAfter(resp),
		}
	case resp.StatusCode >= 500:
		return &core.TransientError{
			Err: fmt.Errorf("vendor API %s returned %d", path, resp.StatusCode),
		}
	default:
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Code == "DUPLICATE" {
			return core.ErrAlreadyProcessed
		}
		if ae.Message != "" {
			return fmt.Errorf("vendor API %s: %s (%s)", path, ae.Message, ae.Code)
		}
		return fmt.Errorf("vendor API %s: status %d, body: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response from %s: %w", path, err)
		}
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
