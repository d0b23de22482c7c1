// Aiswatch - AIS Vessel Tracking and Geographic Query Service
// Copyright 2026 N. Hartono (nhartono)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nhartono/aiswatch

package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/nhartono/aiswatch/internal/config"
	"github.com/nhartono/aiswatch/internal/logging"
	"github.com/nhartono/aiswatch/internal/metrics"
	"github.com/nhartono/aiswatch/internal/models/telkomsat"
)

const breakerName = "telkomsat-api"

// Client talks to the Telkomsat AIS feed: a paginated POST endpoint taking
// api_key/page/limit form fields, and a second endpoint accepting an
// explicit MMSI list for targeted refresh. All calls go through a circuit
// breaker so a dead upstream stops burning the poll budget.
type Client struct {
	cfg        *config.Telkomsat
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*telkomsat.Response]
	limiter    *rate.Limiter
}

// NewClient builds the upstream client. Circuit breaker policy: opens after
// a 60% failure rate over at least 10 requests, waits 2 minutes before
// probing, allows 3 requests in half-open state.
func NewClient(cfg *config.Telkomsat) *Client {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*telkomsat.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	// Politeness limiter on outbound provider calls. The concurrent
	// extra-page fetch can otherwise burst the whole poll in one instant.
	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			// Per-request contexts carry the operation timeouts; this is
			// a hard ceiling in case a caller forgets one.
			Timeout: cfg.RequestTimeout + 5*time.Second,
		},
		cb:      cb,
		limiter: limiter,
	}
}

// FetchPage requests one page of the paginated feed.
func (c *Client) FetchPage(ctx context.Context, page, limit int) (*telkomsat.Response, error) {
	form := url.Values{}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("page", strconv.Itoa(page))
	form.Set("limit", strconv.Itoa(limit))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.execute(ctx, c.cfg.URL, form)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d (limit %d): %w", page, limit, err)
	}
	return resp, nil
}

// FetchVessels requests the targeted-refresh endpoint for an explicit MMSI
// list. Uses the shorter specific-vessel timeout.
func (c *Client) FetchVessels(ctx context.Context, mmsis []int64) (*telkomsat.Response, error) {
	if len(mmsis) == 0 {
		return &telkomsat.Response{}, nil
	}

	parts := make([]string, len(mmsis))
	for i, m := range mmsis {
		parts[i] = strconv.FormatInt(m, 10)
	}
	form := url.Values{}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("mmsi", strings.Join(parts, ","))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.VesselTimeout)
	defer cancel()

	endpoint := c.cfg.VesselURL
	if endpoint == "" {
		endpoint = c.cfg.URL
	}
	resp, err := c.execute(ctx, endpoint, form)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %d vessels: %w", len(mmsis), err)
	}
	return resp, nil
}

// Healthy probes the feed with a minimal single-record request.
func (c *Client) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("api_key", c.cfg.APIKey)
	form.Set("page", "1")
	form.Set("limit", "1")

	if _, err := c.execute(ctx, c.cfg.URL, form); err != nil {
		return fmt.Errorf("upstream health probe failed: %w", err)
	}
	return nil
}

// execute performs one form POST through the circuit breaker and decodes
// the provider envelope.
func (c *Client) execute(ctx context.Context, endpoint string, form url.Values) (*telkomsat.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
		}
	}

	resp, err := c.cb.Execute(func() (*telkomsat.Response, error) {
		return c.doRequest(ctx, endpoint, form)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, form url.Values) (*telkomsat.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close upstream response body")
		}
	}()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("upstream returned status %d: %s", httpResp.StatusCode, string(body))
	}

	var decoded telkomsat.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	if decoded.Code != 0 && decoded.Code != http.StatusOK {
		return nil, fmt.Errorf("upstream error code %d: %s", decoded.Code, decoded.Message)
	}
	return &decoded, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
