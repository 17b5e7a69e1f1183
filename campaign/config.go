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
	"os"

	"github.com/stockparfait/errors"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dafrbm/china-schock-colombia/comtrade"
)

// Country codes of the default campaign ("0" is the World aggregate).
const (
	Colombia = "170"
	China    = "156"
	World    = "0"
)

// Config is the TOML configuration of a download campaign.
type Config struct {
	Key       string    `toml:"key"`        // Comtrade subscription key
	OutDir    string    `toml:"out_dir"`    // where the CSV files go
	DB        string    `toml:"db"`         // optional SQLite mirror path
	StartYear int       `toml:"start_year"` // default: 1992
	EndYear   int       `toml:"end_year"`   // default: 2023
	MaxCalls  int       `toml:"max_calls"`  // default: 500
	Reserve   int       `toml:"reserve"`    // default: 50
	Datasets  []Dataset `toml:"datasets"`   // default: DefaultDatasets()
}

// DefaultDatasets is the standard campaign: Colombia's bilateral and world
// trade at the 6-digit HS level, plus China's exports to the larger LAC
// economies.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{
			Name:     "colombia_imports_from_china_HS6",
			Reporter: Colombia,
			Partner:  China,
			Flow:     comtrade.FlowImport,
		},
		{
			Name:     "colombia_imports_from_world_HS6",
			Reporter: Colombia,
			Partner:  World,
			Flow:     comtrade.FlowImport,
		},
		{
			Name:     "colombia_exports_to_world_HS6",
			Reporter: Colombia,
			Partner:  World,
			Flow:     comtrade.FlowExport,
		},
		{
			Name:     "china_exports_to_lac_HS6",
			Reporter: China,
			Flow:     comtrade.FlowExport,
			Partners: []Partner{
				{Code: "152", Label: "Chile"},
				{Code: "604", Label: "Peru"},
				{Code: "076", Label: "Brazil"},
				{Code: "032", Label: "Argentina"},
				{Code: "218", Label: "Ecuador"},
			},
		},
	}
}

// ParseConfig reads and validates a campaign config file, filling in the
// defaults for everything the file leaves out.
func ParseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourComtradeSubscriptionKey"
out_dir = "raw_data/comtrade"
`
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create a config file containing:\n%s",
				filePath, sample)
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if err := c.init(); err != nil {
		return nil, errors.Annotate(err, "invalid config file %s", filePath)
	}
	return &c, nil
}

func (c *Config) init() error {
	if c.Key == "" {
		return errors.Reason("'key' is required")
	}
	if c.OutDir == "" {
		c.OutDir = "comtrade"
	}
	if c.StartYear == 0 {
		c.StartYear = DefaultStartYear
	}
	if c.EndYear == 0 {
		c.EndYear = DefaultEndYear
	}
	if c.StartYear > c.EndYear {
		return errors.Reason("start_year [%d] > end_year [%d]", c.StartYear, c.EndYear)
	}
	if c.StartYear < 1000 || c.EndYear > 9999 {
		return errors.Reason("years must be 4-digit: [%d, %d]", c.StartYear, c.EndYear)
	}
	if c.MaxCalls == 0 {
		c.MaxCalls = DefaultMaxCalls
	}
	if c.Reserve == 0 {
		c.Reserve = DefaultReserve
	}
	if c.MaxCalls <= c.Reserve {
		return errors.Reason("max_calls [%d] must exceed reserve [%d]",
			c.MaxCalls, c.Reserve)
	}
	if len(c.Datasets) == 0 {
		c.Datasets = DefaultDatasets()
	}
	for i := range c.Datasets {
		if err := c.Datasets[i].init(); err != nil {
			return errors.Annotate(err, "dataset #%d", i+1)
		}
	}
	return nil
}

func (ds *Dataset) init() error {
	if ds.Name == "" {
		return errors.Reason("'name' is required")
	}
	if ds.Reporter == "" {
		return errors.Reason("'reporter' is required")
	}
	if ds.Flow != comtrade.FlowImport && ds.Flow != comtrade.FlowExport {
		return errors.Reason("'flow' must be %q or %q, got %q",
			comtrade.FlowImport, comtrade.FlowExport, ds.Flow)
	}
	if ds.Commodity == "" {
		ds.Commodity = comtrade.DefaultCommodity
	}
	if len(ds.Partners) == 0 && ds.Partner == "" {
		return errors.Reason("'partner' or 'partners' is required")
	}
	for _, p := range ds.Partners {
		if p.Code == "" || p.Label == "" {
			return errors.Reason("each partner needs a 'code' and a 'label'")
		}
	}
	return nil
}
