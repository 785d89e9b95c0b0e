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

// Package mysql reads MySQL and MariaDB result sets as Arrow record batches,
// using github.com/go-sql-driver/mysql for the connection.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/spiceai/arrow-odbc/driverbase"
	"github.com/spiceai/arrow-odbc/sqlwrapper"
)

// Conn is a single connection to a MySQL server.
type Conn struct {
	conn *sqlwrapper.LoggingConn
	db   *sql.DB
}

// ParseDSN parses a go-sql-driver DSN. Temporal columns are always scanned
// as time.Time, so parseTime is switched on regardless of the DSN.
func ParseDSN(dsn string) (*gomysql.Config, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Join(errHelper.InvalidArgument("invalid MySQL DSN"), err)
	}
	cfg.ParseTime = true
	return cfg, nil
}

// Open connects to the server described by dsn.
func Open(ctx context.Context, dsn string, logger *slog.Logger, opts ...Option) (*Conn, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(cfg)
	}
	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Join(errHelper.InvalidArgument("invalid MySQL configuration"), err)
	}
	db := sql.OpenDB(connector)
	// One result set is read at a time
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	conn, err := NewConn(ctx, db, logger)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	logger.DebugContext(ctx, "connected", "addr", cfg.Addr, "db", cfg.DBName, "user", cfg.User)
	return conn, nil
}

// NewConn takes a connection from db. db is owned by the returned Conn.
func NewConn(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errHelper.WrapIO(err, "failed to connect")
	}
	return &Conn{
		conn: &sqlwrapper.LoggingConn{Conn: conn, Logger: logger},
		db:   db,
	}, nil
}

var errHelper = driverbase.ErrorHelper{
	DriverName:     driverbase.DriverName,
	ErrorInspector: ErrorInspector{},
}

// Buffer ceilings used when the caller sets none. go-sql-driver/mysql never
// reports the length of a column, so without a ceiling no text or binary
// column could be sized.
const (
	DefaultMaxTextSize   = 4096
	DefaultMaxBinarySize = 4096
)

// ReaderOptions fills in the MySQL type converter, the error inspector and
// the default buffer ceilings where opts leaves them unset.
func ReaderOptions(opts sqlwrapper.ReaderOptions) sqlwrapper.ReaderOptions {
	if opts.Allocation.MaxTextSize == 0 {
		opts.Allocation.MaxTextSize = DefaultMaxTextSize
	}
	if opts.Allocation.MaxBinarySize == 0 {
		opts.Allocation.MaxBinarySize = DefaultMaxBinarySize
	}
	if opts.TypeConverter == nil {
		opts.TypeConverter = TypeConverter{}
	}
	if opts.ErrorInspector == nil {
		opts.ErrorInspector = ErrorInspector{}
	}
	return opts
}

// Query runs query and streams its result set. The connection can run the
// next query once the returned reader is released.
func (c *Conn) Query(ctx context.Context, alloc memory.Allocator, query string, opts sqlwrapper.ReaderOptions, args ...any) (array.RecordReader, error) {
	return sqlwrapper.Query(ctx, alloc, c.conn, query, ReaderOptions(opts), args...)
}

// Schema describes the result set of query without fetching any rows.
func (c *Conn) Schema(ctx context.Context, query string, opts sqlwrapper.ReaderOptions) (schema *arrow.Schema, err error) {
	opts = ReaderOptions(opts)
	helper := driverbase.ErrorHelper{DriverName: driverbase.DriverName, ErrorInspector: opts.ErrorInspector}
	rows, err := c.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM (%s) AS _arrow_odbc_schema WHERE 1=0", query))
	if err != nil {
		return nil, helper.WrapIO(err, "failed to describe query")
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, helper.WrapIO(err, "failed to get column types")
	}
	return sqlwrapper.SchemaFromColumnTypes(types, opts.TypeConverter)
}

func (c *Conn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}
