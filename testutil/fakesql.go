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

package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FakeDriverName is a database/sql driver serving canned result sets. The
// query text selects the result set registered under it with
// RegisterResult.
const FakeDriverName = "arrow-odbc-fake"

func init() {
	sql.Register(FakeDriverName, fakeDriver{})
}

// FakeColumn describes a column of a canned result set.
type FakeColumn struct {
	name     string
	typeName string
	// nil if the driver cannot tell
	nullable *bool
	// -1 if not reported
	length    int64
	precision int64
	scale     int64
}

// Column reports only its name and database type name.
func Column(name, typeName string) FakeColumn {
	return FakeColumn{name: name, typeName: typeName, length: -1, precision: -1, scale: -1}
}

func (c FakeColumn) WithNullable(nullable bool) FakeColumn {
	c.nullable = &nullable
	return c
}

func (c FakeColumn) WithLength(length int64) FakeColumn {
	c.length = length
	return c
}

func (c FakeColumn) WithDecimalSize(precision, scale int64) FakeColumn {
	c.precision, c.scale = precision, scale
	return c
}

// FakeResult is a canned result set.
type FakeResult struct {
	Columns []FakeColumn
	Rows    [][]driver.Value
	// Err is returned once all rows are consumed.
	Err error
}

var (
	resultsMu sync.Mutex
	results   = map[string]FakeResult{}
	queryErrs = map[string]error{}
)

// RegisterResult serves result for query.
func RegisterResult(query string, result FakeResult) {
	resultsMu.Lock()
	defer resultsMu.Unlock()
	results[query] = result
}

// RegisterQueryError fails query with err.
func RegisterQueryError(query string, err error) {
	resultsMu.Lock()
	defer resultsMu.Unlock()
	queryErrs[query] = err
}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{}, nil }

type fakeConn struct{}

func (*fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements are not supported")
}
func (*fakeConn) Close() error              { return nil }
func (*fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions are not supported") }

func (*fakeConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	resultsMu.Lock()
	defer resultsMu.Unlock()
	if err, ok := queryErrs[query]; ok {
		return nil, err
	}
	result, ok := results[query]
	if !ok {
		return nil, fmt.Errorf("no result registered for %q", query)
	}
	return &fakeRows{result: result}, nil
}

var _ driver.QueryerContext = (*fakeConn)(nil)

type fakeRows struct {
	result FakeResult
	pos    int
}

func (r *fakeRows) Columns() []string {
	names := make([]string, len(r.result.Columns))
	for i, col := range r.result.Columns {
		names[i] = col.name
	}
	return names
}

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.result.Rows) {
		if r.result.Err != nil {
			return r.result.Err
		}
		return io.EOF
	}
	copy(dest, r.result.Rows[r.pos])
	r.pos++
	return nil
}

func (r *fakeRows) ColumnTypeDatabaseTypeName(index int) string {
	return r.result.Columns[index].typeName
}

func (r *fakeRows) ColumnTypeNullable(index int) (nullable, ok bool) {
	if n := r.result.Columns[index].nullable; n != nil {
		return *n, true
	}
	return false, false
}

func (r *fakeRows) ColumnTypeLength(index int) (int64, bool) {
	length := r.result.Columns[index].length
	return length, length >= 0
}

func (r *fakeRows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	col := r.result.Columns[index]
	return col.precision, col.scale, col.precision >= 0
}

var (
	_ driver.RowsColumnTypeDatabaseTypeName = (*fakeRows)(nil)
	_ driver.RowsColumnTypeNullable         = (*fakeRows)(nil)
	_ driver.RowsColumnTypeLength           = (*fakeRows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*fakeRows)(nil)
)
