// Copyright 2025 David Becerra

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package comtrade is a client for the UN Comtrade annual goods data API.
// It performs one rate-limit-aware HTTP round trip per (reporter, partner,
// year, flow) request and classifies the result; every round trip is counted
// against the campaign's call budget.
package comtrade

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/dafrbm/china-schock-colombia/quota"
)

// URL is the default base URL of the data API. It may be overwritten in tests
// before creating a new client.
var URL = "https://comtradeapi.un.org/data/v1/get"

const (
	dataPath   = "/C/A/HS" // goods, annual frequency, HS classification
	authHeader = "Ocp-Apim-Subscription-Key"
)

// Flow codes accepted by the API, from the reporter's perspective.
const (
	FlowImport = "M"
	FlowExport = "X"
)

// DefaultCommodity requests records at the 6-digit HS level.
const DefaultCommodity = "AG6"

// Client defaults. The cooldown and the attempt ceiling govern the throttle
// retry loop in FetchYear.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultCooldown    = 60 * time.Second
	DefaultMaxAttempts = 5
)

// Client for querying the Comtrade data API.
type Client struct {
	baseURL    string
	apiKey     string // your very own subscription key
	httpClient *http.Client

	// Cooldown is the fixed wait after a throttled (HTTP 429) round trip
	// before the identical request is re-issued.
	Cooldown time.Duration

	// MaxAttempts bounds the round trips spent on a single request when the
	// server keeps throttling. Past the ceiling the request resolves to
	// RetryExhausted instead of retrying forever.
	MaxAttempts int
}

// NewClient creates a client for the base URL currently set in URL.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:     URL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		Cooldown:    DefaultCooldown,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Request identifies exactly one remote call: a fixed (reporter, partner,
// year, flow, commodity scope) tuple. It is immutable; retries re-issue the
// same value.
type Request struct {
	Reporter  string // numeric country code as a string
	Partner   string // numeric country code, "0" for World
	Period    int    // 4-digit year
	Flow      string // FlowImport or FlowExport
	Commodity string // commodity classification level, e.g. DefaultCommodity
}

// Values renders the request as API query parameters.
func (r Request) Values() url.Values {
	v := make(url.Values)
	v.Set("reporterCode", r.Reporter)
	v.Set("period", strconv.Itoa(r.Period))
	v.Set("partnerCode", r.Partner)
	v.Set("flowCode", r.Flow)
	v.Set("cmdCode", r.Commodity)
	return v
}

func (r Request) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", r.Reporter, r.Partner, r.Period, r.Flow)
}

// Record is a single row as returned by the API. The schema is whatever the
// upstream returns; rows are passed through without validation.
type Record map[string]any

// Status classifies the final result of fetching one request.
type Status int

const (
	// Success: the server returned at least one row.
	Success Status = iota
	// Empty: the server responded normally but has no rows for the period.
	Empty
	// Failed: transport or server error; downstream this contributes zero
	// rows, same as Empty, but the tag is kept distinct for logging.
	Failed
	// RetryExhausted: the server kept throttling past the attempt ceiling.
	RetryExhausted
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	case RetryExhausted:
		return "retry exhausted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome of one logical fetch, possibly spanning several throttled round
// trips.
type Outcome struct {
	Status Status
	Rows   []Record
}

// dataPage is the response shape; only the data array matters.
type dataPage struct {
	Data []Record `json:"data"`
}

// FetchYear resolves a single request, retrying on throttling. Each HTTP
// round trip increments the tracker exactly once, whatever its result. A 429
// waits out the cooldown and re-issues the identical request, up to
// MaxAttempts round trips in total. Transport errors, unexpected statuses and
// parse failures are logged and swallowed: the caller sees Failed with no
// rows.
func (c *Client) FetchYear(ctx context.Context, tracker *quota.Tracker, req Request) Outcome {
	for attempt := 1; ; attempt++ {
		rows, status, err := c.roundTrip(ctx, req)
		tracker.Increment()
		switch {
		case err != nil:
			logging.Warningf(ctx, "request %s failed: %s", req, err.Error())
			return Outcome{Status: Failed}
		case status == http.StatusTooManyRequests:
			if attempt >= c.MaxAttempts {
				logging.Warningf(ctx,
					"request %s still throttled after %d attempts, giving up", req, attempt)
				return Outcome{Status: RetryExhausted}
			}
			logging.Infof(ctx, "throttled on %s, cooling down for %s", req, c.Cooldown)
			if err := Sleep(ctx, c.Cooldown); err != nil {
				return Outcome{Status: Failed}
			}
		case status != http.StatusOK:
			logging.Warningf(ctx, "request %s: unexpected status %d", req, status)
			return Outcome{Status: Failed}
		case len(rows) == 0:
			return Outcome{Status: Empty}
		default:
			return Outcome{Status: Success, Rows: rows}
		}
	}
}

// roundTrip issues exactly one HTTP GET for the request. A non-nil error
// covers transport and parse failures; otherwise the caller classifies the
// status code.
func (c *Client) roundTrip(ctx context.Context, req Request) ([]Record, int, error) {
	uri := c.baseURL + dataPath + "?" + req.Values().Encode()
	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, 0, errors.Annotate(err, "failed to create request for %s", req)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set(authHeader, c.apiKey)

	resp, err := c.httpClient.Do(hr)
	if err != nil {
		return nil, 0, errors.Annotate(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	var page dataPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, resp.StatusCode, errors.Annotate(err, "failed to parse response")
	}
	return page.Data, resp.StatusCode, nil
}

// Sleep waits for the given duration or until the context is done, whichever
// comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
