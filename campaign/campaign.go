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

package campaign

import (
	"context"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dafrbm/china-schock-colombia/comtrade"
	"github.com/dafrbm/china-schock-colombia/quota"
	"github.com/dafrbm/china-schock-colombia/store"
	"github.com/dafrbm/china-schock-colombia/table"
)

// primaryValueColumn is the trade value column of the Comtrade schema, used
// only for the post-download summary.
const primaryValueColumn = "primaryValue"

// Campaign sequences dataset downloads in a fixed order and hands every
// non-absent result to the sinks, keyed by the dataset name.
type Campaign struct {
	Fetcher *Fetcher
	Tracker *quota.Tracker
	Config  *Config
	Sinks   []store.Sink
}

// New assembles a campaign from its parts. The config's budget overrides the
// fetcher defaults.
func New(config *Config, client YearFetcher, tracker *quota.Tracker, sinks ...store.Sink) *Campaign {
	f := NewFetcher(client, tracker)
	if config.MaxCalls > 0 {
		f.MaxCalls = config.MaxCalls
	}
	if config.Reserve > 0 {
		f.Reserve = config.Reserve
	}
	return &Campaign{
		Fetcher: f,
		Tracker: tracker,
		Config:  config,
		Sinks:   sinks,
	}
}

// Run downloads every configured dataset in order. When the call budget is
// nearly exhausted it stops cleanly, without error, leaving the remaining
// datasets for a later run. A dataset with no rows is logged and skipped;
// sinks are never invoked with an empty table.
func (c *Campaign) Run(ctx context.Context) error {
	total := len(c.Config.Datasets)
	for i, ds := range c.Config.Datasets {
		logging.Infof(ctx, "[%d/%d] %s...", i+1, total, ds.Name)
		var rows []comtrade.Record
		var err error
		if len(ds.Partners) > 0 {
			rows, err = c.Fetcher.FetchMultiPartner(ctx, ds, c.Config.StartYear, c.Config.EndYear)
		} else {
			rows, err = c.Fetcher.FetchDataset(ctx, ds, c.Config.StartYear, c.Config.EndYear)
		}
		if err != nil {
			return errors.Annotate(err, "failed to fetch %s", ds.Name)
		}
		if len(rows) == 0 {
			logging.Warningf(ctx, "%s: no records downloaded, skipping output", ds.Name)
		} else {
			tbl := table.FromRecords(rows)
			for _, sink := range c.Sinks {
				if err := sink.Write(ctx, ds.Name, tbl); err != nil {
					return errors.Annotate(err, "failed to write %s", ds.Name)
				}
			}
			logSummary(ctx, ds.Name, rows, c.Tracker.Calls())
		}
		if c.Tracker.NearLimit(c.Fetcher.MaxCalls, c.Fetcher.Reserve) {
			logging.Infof(ctx,
				"approaching the daily call limit after %d calls; remaining datasets are pending for the next run",
				c.Tracker.Calls())
			return nil
		}
	}
	logging.Infof(ctx, "campaign complete, %d calls used", c.Tracker.Calls())
	return nil
}

// logSummary reports row count and trade value statistics for one finished
// dataset.
func logSummary(ctx context.Context, name string, rows []comtrade.Record, calls int) {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r[primaryValueColumn].(float64); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		logging.Infof(ctx, "%s: %d records | calls: %d", name, len(rows), calls)
		return
	}
	logging.Infof(ctx, "%s: %d records, total value %.0f USD, mean %.0f USD | calls: %d",
		name, len(rows), floats.Sum(values), stat.Mean(values, nil), calls)
}
