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

package sqlwrapper

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/spiceai/arrow-odbc/buffers"
	"github.com/spiceai/arrow-odbc/driverbase"
)

// RowsCursor fills transit buffers from a database/sql result set. It scans
// one row at a time and writes every value into the buffer of its column.
type RowsCursor struct {
	rows          *LoggingRows
	columnTypes   []*sql.ColumnType
	typeConverter TypeConverter

	values    []any
	valuePtrs []any
	// Rows scanned so far, for error messages
	scanned int
}

// NewRowsCursor describes the columns of rows. rows is owned by the cursor
// from then on.
func NewRowsCursor(rows *LoggingRows, typeConverter TypeConverter) (*RowsCursor, error) {
	if typeConverter == nil {
		typeConverter = DefaultTypeConverter{}
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}
	c := &RowsCursor{
		rows:          rows,
		columnTypes:   columnTypes,
		typeConverter: typeConverter,
		values:        make([]any, len(columnTypes)),
		valuePtrs:     make([]any, len(columnTypes)),
	}
	for i := range c.values {
		c.valuePtrs[i] = &c.values[i]
	}
	return c, nil
}

// ColumnTypes are the column types of the result set.
func (c *RowsCursor) ColumnTypes() []*sql.ColumnType {
	return c.columnTypes
}

func (c *RowsCursor) DataType(col int) (buffers.DataType, error) {
	if col < 0 || col >= len(c.columnTypes) {
		return buffers.DataType{}, fmt.Errorf("column %d out of range", col)
	}
	return c.typeConverter.NativeType(c.columnTypes[col]), nil
}

// DisplaySize is the reported length of the column. database/sql has no
// notion of a display size, zero means none was reported.
func (c *RowsCursor) DisplaySize(col int) (int, error) {
	if col < 0 || col >= len(c.columnTypes) {
		return 0, fmt.Errorf("column %d out of range", col)
	}
	if length, ok := c.columnTypes[col].Length(); ok {
		return clampInt(length), nil
	}
	return 0, nil
}

// Fetch implements driverbase.BlockCursor.
func (c *RowsCursor) Fetch(ctx context.Context, columns []buffers.AnyColumnBuffer) (int, error) {
	if len(columns) != len(c.columnTypes) {
		return 0, fmt.Errorf("bound %d buffers to %d columns", len(columns), len(c.columnTypes))
	} else if len(columns) == 0 {
		return 0, io.EOF
	}

	capacity := columns[0].Capacity()
	n := 0
	for n < capacity {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if !c.rows.Next() {
			// Check for SQL errors first
			if err := c.rows.Err(); err != nil {
				return n, err
			}
			return n, io.EOF
		}
		if err := c.rows.Scan(c.valuePtrs...); err != nil {
			return n, err
		}
		for i, col := range columns {
			if err := setValue(col, n, c.values[i]); err != nil {
				return n, fmt.Errorf("row %d, column %d (%s): %w", c.scanned, i, c.columnTypes[i].Name(), err)
			}
		}
		n++
		c.scanned++
	}
	return n, nil
}

func (c *RowsCursor) Close() error {
	return c.rows.Close()
}

var (
	_ driverbase.BlockCursor     = (*RowsCursor)(nil)
	_ driverbase.ColumnDescriber = (*RowsCursor)(nil)
)
