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

//go:build assert

package sqlwrapper

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/spiceai/arrow-odbc/driverbase"
)

var assertHelper = driverbase.ErrorHelper{DriverName: driverbase.DriverName}

type LoggingConn struct {
	Conn   *sql.Conn
	Logger *slog.Logger
}

func (tc *LoggingConn) QueryContext(ctx context.Context, query string, args ...any) (*LoggingRows, error) {
	if tc.Conn == nil {
		return nil, assertHelper.InvalidState("query on a closed connection")
	}
	start := time.Now()
	rows, err := tc.Conn.QueryContext(ctx, query, args...)
	tc.log().DebugContext(ctx, "query",
		slog.String("sql", query),
		slog.Any("args", args),
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("err", err))
	if err != nil {
		return nil, err
	}
	return &LoggingRows{Rows: rows, Logger: tc.log().With(slog.String("sql", query)), opened: start}, nil
}

func (tc *LoggingConn) Close() error {
	if tc.Conn == nil {
		return nil
	}
	err := tc.Conn.Close()
	tc.Conn = nil
	tc.log().Debug("connection closed", slog.Any("err", err))
	return err
}

// LoggingRows logs every call and fails loudly on use after Close.
type LoggingRows struct {
	Rows   *sql.Rows
	Logger *slog.Logger

	opened time.Time
	read   int64
}

func (lr *LoggingRows) closed(op string) error {
	return assertHelper.InvalidState("%s on a closed result set", op)
}

func (lr *LoggingRows) log() *slog.Logger {
	return orDiscard(lr.Logger)
}

func (tc *LoggingConn) log() *slog.Logger {
	return orDiscard(tc.Logger)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func (lr *LoggingRows) Close() error {
	if lr.Rows == nil {
		return nil
	}
	err := lr.Rows.Close()
	lr.Rows = nil
	lr.log().Debug("result set closed",
		slog.Int64("rows", lr.read),
		slog.Duration("open", time.Since(lr.opened)),
		slog.Any("err", err))
	return err
}

func (lr *LoggingRows) ColumnTypes() ([]*sql.ColumnType, error) {
	if lr.Rows == nil {
		return nil, lr.closed("ColumnTypes")
	}
	cols, err := lr.Rows.ColumnTypes()
	attrs := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		attrs = append(attrs, slog.String(col.Name(), col.DatabaseTypeName()))
	}
	attrs = append(attrs, slog.Any("err", err))
	lr.log().Debug("column types", attrs...)
	return cols, err
}

func (lr *LoggingRows) Err() error {
	if lr.Rows == nil {
		return lr.closed("Err")
	}
	err := lr.Rows.Err()
	if err != nil {
		lr.log().Debug("result set failed", slog.Int64("rows", lr.read), slog.Any("err", err))
	}
	return err
}

func (lr *LoggingRows) Next() bool {
	if lr.Rows == nil {
		return false
	}
	if !lr.Rows.Next() {
		lr.log().Info("result set exhausted", slog.Int64("rows", lr.read), slog.Any("err", lr.Rows.Err()))
		return false
	}
	lr.read++
	return true
}

func (lr *LoggingRows) Scan(dest ...any) error {
	if lr.Rows == nil {
		return lr.closed("Scan")
	}
	err := lr.Rows.Scan(dest...)
	if err != nil {
		lr.log().Debug("scan failed", slog.Int64("row", lr.read-1), slog.Any("err", err))
	}
	return err
}
