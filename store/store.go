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

// Package store delivers finished datasets to their destinations.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/dafrbm/china-schock-colombia/table"
)

// Sink receives one finished dataset keyed by its logical name. A sink is
// never handed an empty table.
type Sink interface {
	Write(ctx context.Context, name string, tbl *table.Table) error
}

// CSVDir writes each dataset as <dir>/<name>.csv, without an index column.
type CSVDir struct {
	dir string
}

var _ Sink = (*CSVDir)(nil)

// NewCSVDir creates the output directory if needed.
func NewCSVDir(dir string) (*CSVDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Annotate(err, "failed to create output directory '%s'", dir)
	}
	return &CSVDir{dir: dir}, nil
}

// Write implements Sink. An existing file for the same dataset is replaced.
func (s *CSVDir) Write(ctx context.Context, name string, tbl *table.Table) error {
	filePath := filepath.Join(s.dir, name+".csv")
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to create '%s'", filePath)
	}
	defer f.Close()

	if err := tbl.WriteCSV(f, table.Params{}); err != nil {
		return errors.Annotate(err, "failed to write '%s'", filePath)
	}
	logging.Infof(ctx, "wrote %d records to %s", tbl.NumRows(), filePath)
	return nil
}

// Preview prints the first rows of each dataset as an aligned text table,
// for eyeballing results in the terminal.
type Preview struct {
	W    io.Writer
	Rows int
}

var _ Sink = (*Preview)(nil)

// Write implements Sink.
func (p *Preview) Write(ctx context.Context, name string, tbl *table.Table) error {
	if _, err := fmt.Fprintf(p.W, "%s (%d records):\n", name, tbl.NumRows()); err != nil {
		return errors.Annotate(err, "failed to write preview title")
	}
	params := table.Params{Rows: p.Rows, MaxColWidth: 16}
	if err := tbl.WriteText(p.W, params); err != nil {
		return errors.Annotate(err, "failed to write preview of '%s'", name)
	}
	_, err := fmt.Fprintln(p.W)
	return err
}
