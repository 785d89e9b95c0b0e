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
	"errors"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/driverbase"
)

type ReaderOptions struct {
	driverbase.ReaderOptions
	// TypeConverter defaults to DefaultTypeConverter.
	TypeConverter TypeConverter
}

// NewReader streams the result set as Arrow record batches. The returned
// reader owns rows, also if an error is returned.
func NewReader(ctx context.Context, alloc memory.Allocator, rows *LoggingRows, opts ReaderOptions) (array.RecordReader, error) {
	errHelper := driverbase.ErrorHelper{
		DriverName:     driverbase.DriverName,
		ErrorInspector: opts.ErrorInspector,
	}

	cursor, err := NewRowsCursor(rows, opts.TypeConverter)
	if err != nil {
		return nil, errors.Join(errHelper.WrapIO(err, "describing result set"), rows.Close())
	}
	schema, err := SchemaFromColumnTypes(cursor.ColumnTypes(), cursor.typeConverter)
	if err != nil {
		return nil, errors.Join(errHelper.WrapInternal(err, "failed to build Arrow schema"), cursor.Close())
	}
	return driverbase.NewRecordReader(ctx, alloc, schema, cursor, cursor, opts.ReaderOptions)
}

// Query runs query on conn and streams its result set.
func Query(ctx context.Context, alloc memory.Allocator, conn *LoggingConn, query string, opts ReaderOptions, args ...any) (array.RecordReader, error) {
	errHelper := driverbase.ErrorHelper{
		DriverName:     driverbase.DriverName,
		ErrorInspector: opts.ErrorInspector,
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errHelper.WrapIO(err, "failed to execute query")
	}
	return NewReader(ctx, alloc, rows, opts)
}
