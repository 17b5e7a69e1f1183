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

// Package table holds downloaded records as a flat table with a dynamic
// schema: the columns are the union of the fields seen across all rows.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dafrbm/china-schock-colombia/comtrade"
)

// Table is an ordered sequence of records with a fixed column set.
type Table struct {
	columns []string
	rows    []comtrade.Record
}

// FromRecords builds a table over the given rows. The header is the sorted
// union of the field names present in any row; fields missing from a row
// render as empty cells. Row order is preserved.
func FromRecords(rows []comtrade.Record) *Table {
	union := make(map[string]bool)
	for _, r := range rows {
		for field := range r {
			union[field] = true
		}
	}
	columns := maps.Keys(union)
	slices.Sort(columns)
	return &Table{columns: columns, rows: rows}
}

// Columns returns the header in output order.
func (t *Table) Columns() []string {
	return t.columns
}

// NumRows returns the number of records in the table.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Rows returns the underlying records.
func (t *Table) Rows() []comtrade.Record {
	return t.rows
}

// HasColumn checks whether the header contains the given column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// csvRow renders one record against the table's columns.
func (t *Table) csvRow(r comtrade.Record) []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		if v, ok := r[c]; ok {
			out[i] = cell(v)
		}
	}
	return out
}

// cell renders a single field value. JSON numbers keep their shortest
// representation, so integer-valued cells do not grow a ".0" suffix.
func cell(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// Params are parameters for CSV export or pretty-printing of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// WriteCSV writes the table to w in CSV format, without an index column.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.columns) > 0 {
		if err := cw.Write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range t.rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := cw.Write(t.csvRow(r)); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths := make([]int, len(t.columns))
	update := func(row []string) {
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, width := range widths {
			row[i] = strings.Repeat("-", width)
		}
		return row
	}

	if !p.NoHeader {
		update(t.columns)
	}
	for i, r := range t.rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		update(t.csvRow(r))
	}

	if !p.NoHeader && len(t.columns) > 0 {
		if err := write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		if err := write(dashedRow()); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for i, r := range t.rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := write(t.csvRow(r)); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	return nil
}
