// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Wrappers around database/sql types that the row cursor reads through. The
// default build logs one summary line per result set, holding the row count
// and the time it was open. Building with the assert tag also logs every
// query with its arguments and every call on the result set, which may
// expose sensitive values.

//go:build !assert

package sqlwrapper

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

type LoggingConn struct {
	Conn   *sql.Conn
	Logger *slog.Logger
}

func (tc *LoggingConn) QueryContext(ctx context.Context, query string, args ...any) (*LoggingRows, error) {
	rows, err := tc.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &LoggingRows{Rows: rows, Logger: tc.Logger, opened: time.Now()}, nil
}

func (tc *LoggingConn) Close() error {
	return tc.Conn.Close()
}

// LoggingRows counts the rows read from a result set.
type LoggingRows struct {
	Rows   *sql.Rows
	Logger *slog.Logger

	opened time.Time
	read   int64
}

func (lr *LoggingRows) Close() error {
	err := lr.Rows.Close()
	if lr.Logger != nil {
		lr.Logger.Debug("result set closed",
			slog.Int64("rows", lr.read),
			slog.Duration("open", time.Since(lr.opened)),
			slog.Any("err", err))
	}
	return err
}

func (lr *LoggingRows) ColumnTypes() ([]*sql.ColumnType, error) {
	return lr.Rows.ColumnTypes()
}

func (lr *LoggingRows) Err() error {
	return lr.Rows.Err()
}

func (lr *LoggingRows) Next() bool {
	if !lr.Rows.Next() {
		return false
	}
	lr.read++
	return true
}

func (lr *LoggingRows) Scan(dest ...any) error {
	return lr.Rows.Scan(dest...)
}
