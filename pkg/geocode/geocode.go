// Shoebox
// Copyright (c) 2026 The Shoebox Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Shoebox.
//
// Shoebox is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Shoebox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Shoebox.  If not, see <http://www.gnu.org/licenses/>.

// Package geocode resolves GPS coordinates to place names through a
// Nominatim reverse geocoding endpoint.
//
// Nominatim's public instance enforces an absolute maximum of one
// request per second per client, so every call goes through a shared
// rate limiter. Geocoding is best effort throughout: callers treat any
// error as "no location" and keep going.
package geocode

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

	"github.com/ShoeboxProject/shoebox/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// defaultRetries is how many times a transient failure is attempted.
	defaultRetries = 3
	// defaultRetryDelay separates attempts.
	defaultRetryDelay = 5 * time.Second
	// defaultTimeout bounds a single HTTP exchange.
	defaultTimeout = 10 * time.Second
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Location is one reverse geocoding result. Nil fields were absent from
// the response and persist as NULL.
type Location struct {
	Class       *string
	Type        *string
	Name        *string
	DisplayName *string
	City        *string
	Province    *string
	Country     *string
}

// Client is a reverse geocoding client for one user agent. Image and
// movie lookups identify themselves differently, so each media type
// gets its own Client around the same endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clockwork.Clock
	baseURL    string
	userAgent  string
	retries    int
	retryDelay time.Duration
}

// NewClient creates a Client for cfg's endpoint identifying as
// userAgent.
func NewClient(cfg config.Geocode, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		clock:      clockwork.NewRealClock(),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
}

// nominatimResponse is the v1 JSON reverse geocoding shape. A response
// carrying only the error field means the point resolves to nothing,
// open ocean for example.
type nominatimResponse struct {
	Class       string `json:"class"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse resolves coordinates to a Location. Transient failures are
// retried with a fixed delay; definitive answers, including "nothing
// here", return immediately.
func (c *Client) Reverse(ctx context.Context, lat, long float64) (*Location, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("reverse geocoding canceled: %w", ctx.Err())
			case <-c.clock.After(c.retryDelay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to acquire geocode rate slot: %w", err)
		}

		location, retryable, err := c.reverseOnce(ctx, lat, long)
		if err == nil {
			return location, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Float64("lat", lat).
			Float64("long", long).
			Msg("reverse geocoding attempt failed")
	}
	return nil, fmt.Errorf("reverse geocoding failed after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) reverseOnce(ctx context.Context, lat, long float64) (*Location, bool, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(long, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("reverse geocode request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close geocode response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("geocoding service unavailable: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("geocoding request rejected: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, false, fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if nr.Error != "" {
		return nil, false, fmt.Errorf("no geocoding result: %s", nr.Error)
	}

	return &Location{
		Class:       optString(nr.Class),
		Type:        optString(nr.Type),
		Name:        optString(nr.Name),
		DisplayName: optString(nr.DisplayName),
		City:        optString(nr.Address.City),
		Province:    optString(nr.Address.State),
		Country:     optString(nr.Address.Country),
	}, false, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
