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

package columnstrategy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spiceai/arrow-odbc/buffers"
)

// Lazy memoizes a fallible computation. Get calls the function at most once,
// however often it is called and from however many goroutines.
type Lazy[T any] struct {
	get func() (T, error)
}

func NewLazy[T any](fn func() (T, error)) *Lazy[T] {
	return &Lazy[T]{get: sync.OnceValues(fn)}
}

func (l *Lazy[T]) Get() (T, error) { return l.get() }

// ChooseColumnStrategy picks the strategy fetching a column into the
// requested Arrow field.
//
// lazySQLType and lazyDisplaySize are only invoked for string and binary
// fields, and each at most once.
func ChooseColumnStrategy(field arrow.Field, lazySQLType func() (buffers.DataType, error), lazyDisplaySize func() (int, error), opts BufferAllocationOptions) (ColumnStrategy, error) {
	nullable := field.Nullable

	switch dt := field.Type.(type) {
	case *arrow.BooleanType:
		if nullable {
			return NullableBoolean{}, nil
		}
		return NonNullableBoolean{}, nil
	case *arrow.Int8Type:
		return newNoConversion[int8](dt, buffers.CTypeI8, nullable), nil
	case *arrow.Int16Type:
		return newNoConversion[int16](dt, buffers.CTypeI16, nullable), nil
	case *arrow.Int32Type:
		return newNoConversion[int32](dt, buffers.CTypeI32, nullable), nil
	case *arrow.Int64Type:
		return newNoConversion[int64](dt, buffers.CTypeI64, nullable), nil
	case *arrow.Uint8Type:
		return newNoConversion[uint8](dt, buffers.CTypeU8, nullable), nil
	case *arrow.Float32Type:
		return newNoConversion[float32](dt, buffers.CTypeF32, nullable), nil
	case *arrow.Float64Type:
		return newNoConversion[float64](dt, buffers.CTypeF64, nullable), nil
	case *arrow.Date32Type:
		return newWithConversion(dt, nullable, Conversion[buffers.Date, arrow.Date32](DateConversion{})), nil
	case *arrow.TimestampType:
		return chooseTimestampStrategy(dt, nullable)
	case *arrow.StringType:
		sqlType, err := lazySQLType()
		if err != nil {
			return nil, &FailedToDescribeColumnError{Err: err}
		}
		return chooseTextStrategy(sqlType, lazyDisplaySize, nullable, opts.MaxTextSize, opts.TextEncoding)
	case *arrow.Decimal128Type:
		return newDecimal(nullable, dt.Precision, dt.Scale)
	case *arrow.BinaryType:
		sqlType, err := lazySQLType()
		if err != nil {
			return nil, &FailedToDescribeColumnError{Err: err}
		}
		length, err := ResolveBufferLength(sqlType, sqlType.ColumnSize, opts.MaxBinarySize)
		if err != nil {
			return nil, err
		}
		return Binary{Nullable: nullable, Length: length}, nil
	case *arrow.FixedSizeBinaryType:
		return FixedSizedBinary{Nullable: nullable, Length: dt.ByteWidth}, nil
	case *arrow.NullType, *arrow.Date64Type, *arrow.Time32Type, *arrow.Time64Type,
		*arrow.DurationType, *arrow.MonthIntervalType, *arrow.DayTimeIntervalType,
		*arrow.MonthDayNanoIntervalType, *arrow.LargeBinaryType, *arrow.LargeStringType,
		*arrow.BinaryViewType, *arrow.StringViewType, *arrow.ListType, *arrow.LargeListType,
		*arrow.FixedSizeListType, *arrow.ListViewType, *arrow.LargeListViewType,
		*arrow.StructType, *arrow.SparseUnionType, *arrow.DenseUnionType,
		*arrow.DictionaryType, *arrow.MapType, *arrow.Float16Type, *arrow.Uint16Type,
		*arrow.Uint32Type, *arrow.Uint64Type, *arrow.Decimal32Type, *arrow.Decimal64Type,
		*arrow.Decimal256Type, *arrow.RunEndEncodedType:
		return nil, &UnsupportedArrowTypeError{Type: field.Type}
	default:
		// Extension types and anything added to Arrow later.
		return nil, &UnsupportedArrowTypeError{Type: field.Type}
	}
}

func chooseTimestampStrategy(dt *arrow.TimestampType, nullable bool) (ColumnStrategy, error) {
	switch dt.Unit {
	case arrow.Second:
		return newWithConversion(dt, nullable, Conversion[buffers.Timestamp, arrow.Timestamp](TimestampSecConversion{})), nil
	case arrow.Millisecond:
		return newWithConversion(dt, nullable, Conversion[buffers.Timestamp, arrow.Timestamp](TimestampMsConversion{})), nil
	case arrow.Microsecond:
		return newWithConversion(dt, nullable, Conversion[buffers.Timestamp, arrow.Timestamp](TimestampUsConversion{})), nil
	case arrow.Nanosecond:
		return newWithConversion(dt, nullable, Conversion[buffers.Timestamp, arrow.Timestamp](TimestampNsConversion{})), nil
	}
	return nil, &UnsupportedArrowTypeError{Type: dt}
}

// Catalog is ChooseColumnStrategy bound to a set of options, logging every
// decision.
type Catalog struct {
	Options BufferAllocationOptions
	Logger  *slog.Logger
}

func (c *Catalog) Choose(ctx context.Context, field arrow.Field, lazySQLType func() (buffers.DataType, error), lazyDisplaySize func() (int, error)) (ColumnStrategy, error) {
	strategy, err := ChooseColumnStrategy(field, lazySQLType, lazyDisplaySize, c.Options)
	if c.Logger == nil {
		return strategy, err
	}
	if err != nil {
		c.Logger.DebugContext(ctx, "no column strategy", "field", field.Name, "type", field.Type, "error", err)
		return nil, err
	}
	c.Logger.DebugContext(ctx, "chose column strategy",
		"field", field.Name,
		"type", field.Type,
		"buffer", strategy.BufferDescription().String())
	return strategy, nil
}
