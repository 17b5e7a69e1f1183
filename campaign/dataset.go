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

// Package campaign orchestrates rate-limited, quota-aware downloads of trade
// datasets: one dataset is a per-year sequence of calls over a fixed
// (reporter, partner, flow, commodity) tuple, paced to stay under the server
// rate limit and stopped early when the daily call budget runs low.
package campaign

import (
	"context"
	"time"

	"github.com/stockparfait/logging"

	"github.com/dafrbm/china-schock-colombia/comtrade"
	"github.com/dafrbm/china-schock-colombia/quota"
)

// YearFetcher is the single-call layer: one logical request in, one classified
// outcome out. *comtrade.Client implements it; tests substitute stubs.
type YearFetcher interface {
	FetchYear(ctx context.Context, tracker *quota.Tracker, req comtrade.Request) comtrade.Outcome
}

var _ YearFetcher = (*comtrade.Client)(nil)

// PartnerLabelColumn is the synthetic column tagging each row of a
// multi-partner dataset with the partner it was fetched against.
const PartnerLabelColumn = "partner_country"

// Download pacing and budget defaults, matching the API terms of use:
// 500 calls per day, stopped 50 short for safety.
const (
	DefaultMaxCalls = 500
	DefaultReserve  = 50

	DefaultYearPause    = 1500 * time.Millisecond
	DefaultPartnerPause = 2 * time.Second

	DefaultStartYear = 1992
	DefaultEndYear   = 2023
)

// Partner of a multi-partner dataset.
type Partner struct {
	Code  string `toml:"code"`
	Label string `toml:"label"`
}

// Dataset describes one logical dataset of a campaign. When Partners is
// non-empty the dataset is fetched once per partner and Partner is ignored.
type Dataset struct {
	Name      string    `toml:"name"`
	Reporter  string    `toml:"reporter"`
	Partner   string    `toml:"partner"`
	Flow      string    `toml:"flow"`
	Commodity string    `toml:"commodity"`
	Partners  []Partner `toml:"partners"`
}

// Fetcher downloads logical datasets year by year, strictly sequentially.
type Fetcher struct {
	client  YearFetcher
	tracker *quota.Tracker

	MaxCalls     int
	Reserve      int
	YearPause    time.Duration
	PartnerPause time.Duration
}

// NewFetcher creates a Fetcher with the default pacing and budget.
func NewFetcher(client YearFetcher, tracker *quota.Tracker) *Fetcher {
	return &Fetcher{
		client:       client,
		tracker:      tracker,
		MaxCalls:     DefaultMaxCalls,
		Reserve:      DefaultReserve,
		YearPause:    DefaultYearPause,
		PartnerPause: DefaultPartnerPause,
	}
}

// FetchDataset fetches every year in [startYear, endYear] for the dataset's
// (reporter, partner, flow) tuple, in ascending order, and returns the
// concatenated rows. After every attempt it pauses, then stops early when the
// call budget is nearly exhausted. A nil result means no year produced rows;
// callers must not hand an absent result to a sink. The returned error is
// non-nil only when the context is canceled mid-pause.
func (f *Fetcher) FetchDataset(ctx context.Context, ds Dataset, startYear, endYear int) ([]comtrade.Record, error) {
	var rows []comtrade.Record
	for year := startYear; year <= endYear; year++ {
		req := comtrade.Request{
			Reporter:  ds.Reporter,
			Partner:   ds.Partner,
			Period:    year,
			Flow:      ds.Flow,
			Commodity: ds.Commodity,
		}
		out := f.client.FetchYear(ctx, f.tracker, req)
		switch out.Status {
		case comtrade.Success:
			rows = append(rows, out.Rows...)
			logging.Debugf(ctx, "%s %d: %d rows", ds.Name, year, len(out.Rows))
		case comtrade.Empty:
			logging.Debugf(ctx, "%s %d: no records", ds.Name, year)
		default:
			// Failed and RetryExhausted contribute zero rows, same as Empty.
			logging.Warningf(ctx, "%s %d: %s", ds.Name, year, out.Status)
		}
		if err := comtrade.Sleep(ctx, f.YearPause); err != nil {
			return rows, err
		}
		if f.tracker.NearLimit(f.MaxCalls, f.Reserve) {
			logging.Infof(ctx, "%s: %d calls used, approaching the daily limit, stopping at %d",
				ds.Name, f.tracker.Calls(), year)
			break
		}
	}
	return rows, nil
}

// FetchMultiPartner runs the per-year loop once per partner, in the given
// order, tagging every row with the partner's label. The combined result
// keeps partner sub-runs contiguous and in order. The same budget check
// applies between partners.
func (f *Fetcher) FetchMultiPartner(ctx context.Context, ds Dataset, startYear, endYear int) ([]comtrade.Record, error) {
	var combined []comtrade.Record
	for _, p := range ds.Partners {
		sub := ds
		sub.Partner = p.Code
		sub.Partners = nil
		rows, err := f.FetchDataset(ctx, sub, startYear, endYear)
		if err != nil {
			return combined, err
		}
		for _, r := range rows {
			r[PartnerLabelColumn] = p.Label
			combined = append(combined, r)
		}
		if err := comtrade.Sleep(ctx, f.PartnerPause); err != nil {
			return combined, err
		}
		if f.tracker.NearLimit(f.MaxCalls, f.Reserve) {
			break
		}
	}
	return combined, nil
}
