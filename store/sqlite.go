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

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	_ "modernc.org/sqlite"

	"github.com/dafrbm/china-schock-colombia/comtrade"
	"github.com/dafrbm/china-schock-colombia/table"
)

// SQLite mirrors downloaded datasets into a local database for ad-hoc
// querying. The canonical Comtrade columns are extracted into their own
// columns; the full row is kept as JSON.
type SQLite struct {
	db *sql.DB
}

var _ Sink = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.Reason("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open sqlite db '%s'", path)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to migrate sqlite db '%s'", path)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS trade_records (
		dataset TEXT NOT NULL,
		reporter TEXT,
		partner TEXT,
		period TEXT,
		flow TEXT,
		cmd TEXT,
		partner_country TEXT,
		primary_value REAL,
		raw TEXT NOT NULL
	)`)
	return err
}

// Write implements Sink. Re-running a campaign replaces the dataset's rows
// instead of duplicating them.
func (s *SQLite) Write(ctx context.Context, name string, tbl *table.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trade_records WHERE dataset = ?`, name); err != nil {
		return errors.Annotate(err, "failed to clear previous rows of '%s'", name)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trade_records (
		dataset, reporter, partner, period, flow, cmd, partner_country,
		primary_value, raw
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Annotate(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, r := range tbl.Rows() {
		raw, err := json.Marshal(r)
		if err != nil {
			return errors.Annotate(err, "failed to serialize row %d of '%s'", i, name)
		}
		_, err = stmt.ExecContext(ctx,
			name,
			recordString(r, "reporterCode"),
			recordString(r, "partnerCode"),
			recordString(r, "period"),
			recordString(r, "flowCode"),
			recordString(r, "cmdCode"),
			recordString(r, "partner_country"),
			recordFloat(r, "primaryValue"),
			string(raw),
		)
		if err != nil {
			return errors.Annotate(err, "failed to insert row %d of '%s'", i, name)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Annotate(err, "failed to commit '%s'", name)
	}
	logging.Infof(ctx, "mirrored %d records of %s into sqlite", tbl.NumRows(), name)
	return nil
}

// recordString extracts a field as a string; numeric fields lose no
// precision, missing fields become the empty string.
func recordString(r comtrade.Record, key string) string {
	switch typed := r[key].(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

// recordFloat extracts a numeric field, 0 when absent or non-numeric.
func recordFloat(r comtrade.Record, key string) float64 {
	if v, ok := r[key].(float64); ok {
		return v
	}
	return 0
}
