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

package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/dafrbm/china-schock-colombia/campaign"
	"github.com/dafrbm/china-schock-colombia/comtrade"
	"github.com/dafrbm/china-schock-colombia/quota"
	"github.com/dafrbm/china-schock-colombia/store"
)

type Flags struct {
	Config   string // config file path
	Preview  int    // print the first N rows of each dataset; 0 disables
	DryRun   bool   // print the download plan and exit
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("comtrade-download", flag.ExitOnError)
	fs.StringVar(&flags.Config, "conf", "", "config file (required)")
	fs.IntVar(&flags.Preview, "preview", 0,
		"print the first N rows of each downloaded dataset")
	fs.BoolVar(&flags.DryRun, "dry-run", false,
		"print the download plan without calling the API")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.Config == "" {
		return nil, errors.Reason("-conf is required")
	}
	return &flags, nil
}

// logPlan prints the campaign's datasets with country codes resolved to
// names when the reference tables are reachable.
func logPlan(ctx context.Context, config *campaign.Config) {
	labels := map[string]string{}
	if reporters, err := comtrade.FetchReporters(ctx); err != nil {
		logging.Warningf(ctx, "failed to fetch reporter names: %s", err.Error())
	} else {
		labels = comtrade.Labels(reporters)
	}
	if partners, err := comtrade.FetchPartners(ctx); err != nil {
		logging.Warningf(ctx, "failed to fetch partner names: %s", err.Error())
	} else {
		for id, text := range comtrade.Labels(partners) {
			if _, ok := labels[id]; !ok {
				labels[id] = text
			}
		}
	}

	logging.Infof(ctx, "campaign: %d datasets, years %d-%d, budget %d calls (reserve %d)",
		len(config.Datasets), config.StartYear, config.EndYear,
		config.MaxCalls, config.Reserve)
	for _, ds := range config.Datasets {
		if len(ds.Partners) > 0 {
			names := make([]string, len(ds.Partners))
			for i, p := range ds.Partners {
				names[i] = p.Label
			}
			logging.Infof(ctx, "  %s: %s -> %v, flow %s",
				ds.Name, comtrade.LabelFor(labels, ds.Reporter), names, ds.Flow)
			continue
		}
		logging.Infof(ctx, "  %s: %s -> %s, flow %s",
			ds.Name, comtrade.LabelFor(labels, ds.Reporter),
			comtrade.LabelFor(labels, ds.Partner), ds.Flow)
	}
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := campaign.ParseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	logPlan(ctx, config)
	if flags.DryRun {
		return nil
	}

	csvDir, err := store.NewCSVDir(config.OutDir)
	if err != nil {
		return errors.Annotate(err, "failed to set up output directory")
	}
	sinks := []store.Sink{csvDir}
	if config.DB != "" {
		db, err := store.NewSQLite(config.DB)
		if err != nil {
			return errors.Annotate(err, "failed to open sqlite mirror")
		}
		defer db.Close()
		sinks = append(sinks, db)
	}
	if flags.Preview > 0 {
		sinks = append(sinks, &store.Preview{W: w, Rows: flags.Preview})
	}

	client := comtrade.NewClient(config.Key)
	tracker := quota.New()
	c := campaign.New(config, client, tracker, sinks...)
	if err := c.Run(ctx); err != nil {
		return errors.Annotate(err, "campaign failed")
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
