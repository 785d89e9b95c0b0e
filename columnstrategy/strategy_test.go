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

package columnstrategy_test

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
	"github.com/spiceai/arrow-odbc/columnstrategy"
	"github.com/spiceai/arrow-odbc/testutil"
	"github.com/stretchr/testify/suite"
)

func TestFill(t *testing.T) {
	suite.Run(t, &FillSuite{})
}

type FillSuite struct {
	suite.Suite
	mem *memory.CheckedAllocator
}

func (s *FillSuite) SetupTest() {
	s.mem = memory.NewCheckedAllocator(memory.NewGoAllocator())
}

func (s *FillSuite) TearDownTest() {
	s.mem.AssertSize(s.T(), 0)
}

func (s *FillSuite) choose(field arrow.Field) columnstrategy.ColumnStrategy {
	strategy, err := columnstrategy.ChooseColumnStrategy(field, noSQLType(s.T()), noDisplaySize(s.T()),
		columnstrategy.BufferAllocationOptions{})
	s.Require().NoError(err)
	return strategy
}

func (s *FillSuite) fill(strategy columnstrategy.ColumnStrategy, column buffers.AnyColumnBuffer) arrow.Array {
	arr, err := strategy.FillArrowArray(s.mem, column)
	s.Require().NoError(err)
	return arr
}

func (s *FillSuite) assertArray(dtype arrow.DataType, json string, actual arrow.Array) {
	expected := testutil.ArrayFromJSON(s.T(), s.mem, dtype, json)
	defer expected.Release()
	s.Truef(array.Equal(expected, actual), "expected %s, got %s", expected, actual)
}

func (s *FillSuite) TestNonNullableBoolean() {
	strategy := s.choose(arrow.Field{Name: "b", Type: arrow.FixedWidthTypes.Boolean})
	s.Equal(buffers.BitDescription(false), strategy.BufferDescription())

	col := buffers.NewFixedColumn[buffers.Bit](strategy.BufferDescription(), 4)
	for i, b := range []buffers.Bit{1, 0, 1, 7} {
		col.Set(i, b)
	}
	col.SetLen(4)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.Zero(arr.NullN())
	s.assertArray(arrow.FixedWidthTypes.Boolean, `[true, false, true, true]`, arr)
}

func (s *FillSuite) TestNullableBoolean() {
	strategy := s.choose(arrow.Field{Name: "b", Type: arrow.FixedWidthTypes.Boolean, Nullable: true})
	s.Equal(buffers.BitDescription(true), strategy.BufferDescription())

	col := buffers.NewFixedColumn[buffers.Bit](strategy.BufferDescription(), 3)
	col.Set(0, 1)
	col.SetNull(1)
	col.Set(2, 0)
	col.SetLen(3)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.assertArray(arrow.FixedWidthTypes.Boolean, `[true, null, false]`, arr)
}

func (s *FillSuite) TestNoConversion() {
	for _, tc := range []struct {
		dtype arrow.DataType
		ctype buffers.CType
	}{
		{arrow.PrimitiveTypes.Int8, buffers.CTypeI8},
		{arrow.PrimitiveTypes.Int16, buffers.CTypeI16},
		{arrow.PrimitiveTypes.Int32, buffers.CTypeI32},
		{arrow.PrimitiveTypes.Int64, buffers.CTypeI64},
		{arrow.PrimitiveTypes.Uint8, buffers.CTypeU8},
		{arrow.PrimitiveTypes.Float32, buffers.CTypeF32},
		{arrow.PrimitiveTypes.Float64, buffers.CTypeF64},
	} {
		s.Run(tc.dtype.String(), func() {
			strategy := s.choose(arrow.Field{Name: "n", Type: tc.dtype, Nullable: true})
			s.Equal(buffers.FixedWidthDescription(true, tc.ctype), strategy.BufferDescription())

			col := buffers.NewColumnBuffer(strategy.BufferDescription(), 3)
			switch col := col.(type) {
			case *buffers.FixedColumn[int8]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[int16]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[int32]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[int64]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[uint8]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[float32]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			case *buffers.FixedColumn[float64]:
				col.Set(0, 1)
				col.SetNull(1)
				col.Set(2, 3)
			default:
				s.FailNow("unexpected buffer", "%T", col)
			}
			col.SetLen(3)

			arr := s.fill(strategy, col)
			defer arr.Release()
			s.True(arrow.TypeEqual(tc.dtype, arr.DataType()))
			s.assertArray(tc.dtype, `[1, null, 3]`, arr)
		})
	}
}

// The validity of a nullable column matches its indicators one to one.
func (s *FillSuite) TestNoConversionValidityMatchesIndicators() {
	strategy := s.choose(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: true})
	col := buffers.NewFixedColumn[int32](strategy.BufferDescription(), 64)
	for i := range 64 {
		if i%3 == 0 {
			col.SetNull(i)
		} else {
			col.Set(i, int32(i))
		}
	}
	col.SetLen(64)

	arr := s.fill(strategy, col)
	defer arr.Release()
	ints := arr.(*array.Int32)
	for i := range 64 {
		s.Equal(col.Indicators[i] == buffers.NullData, ints.IsNull(i), "row %d", i)
		if ints.IsValid(i) {
			s.Equal(int32(i), ints.Value(i))
		}
	}
}

func (s *FillSuite) TestNonNullableIgnoresValueContents() {
	strategy := s.choose(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int64})
	col := buffers.NewFixedColumn[int64](strategy.BufferDescription(), 2)
	col.Set(0, -1)
	col.Set(1, 42)
	col.SetLen(2)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.Zero(arr.NullN())
	s.assertArray(arrow.PrimitiveTypes.Int64, `[-1, 42]`, arr)
}

func (s *FillSuite) TestDate() {
	strategy := s.choose(arrow.Field{Name: "d", Type: arrow.FixedWidthTypes.Date32, Nullable: true})
	s.Equal(buffers.FixedWidthDescription(true, buffers.CTypeDate), strategy.BufferDescription())

	col := buffers.NewFixedColumn[buffers.Date](strategy.BufferDescription(), 4)
	col.Set(0, buffers.Date{Year: 1970, Month: 1, Day: 1})
	col.Set(1, buffers.Date{Year: 1970, Month: 1, Day: 2})
	col.SetNull(2)
	col.Set(3, buffers.Date{Year: 1969, Month: 12, Day: 31})
	col.SetLen(4)

	arr := s.fill(strategy, col)
	defer arr.Release()
	dates := arr.(*array.Date32)
	s.Equal(arrow.Date32(0), dates.Value(0))
	s.Equal(arrow.Date32(1), dates.Value(1))
	s.True(dates.IsNull(2))
	s.Equal(arrow.Date32(-1), dates.Value(3))
}

func (s *FillSuite) TestTimestampUnits() {
	ts := buffers.Timestamp{Year: 1970, Month: 1, Day: 1, Second: 1, Fraction: 500_000_000}
	for _, tc := range []struct {
		unit arrow.TimeUnit
		want arrow.Timestamp
	}{
		{arrow.Second, 1},
		{arrow.Millisecond, 1_500},
		{arrow.Microsecond, 1_500_000},
		{arrow.Nanosecond, 1_500_000_000},
	} {
		s.Run(tc.unit.String(), func() {
			dtype := &arrow.TimestampType{Unit: tc.unit}
			strategy := s.choose(arrow.Field{Name: "t", Type: dtype})
			s.Equal(buffers.FixedWidthDescription(false, buffers.CTypeTimestamp), strategy.BufferDescription())

			col := buffers.NewFixedColumn[buffers.Timestamp](strategy.BufferDescription(), 1)
			col.Set(0, ts)
			col.SetLen(1)

			arr := s.fill(strategy, col)
			defer arr.Release()
			s.Equal(tc.want, arr.(*array.Timestamp).Value(0))
		})
	}
}

func (s *FillSuite) TestTimestampNanosecondRange() {
	strategy := s.choose(arrow.Field{Name: "t", Type: &arrow.TimestampType{Unit: arrow.Nanosecond}})
	for _, tc := range []struct {
		name string
		ts   buffers.Timestamp
		want int64
		ok   bool
	}{
		{"latest", buffers.Timestamp{Year: 2262, Month: 4, Day: 11, Hour: 23, Minute: 47, Second: 16, Fraction: 854_775_807}, math.MaxInt64, true},
		{"after latest", buffers.Timestamp{Year: 2262, Month: 4, Day: 11, Hour: 23, Minute: 47, Second: 16, Fraction: 854_775_808}, 0, false},
		{"earliest", buffers.Timestamp{Year: 1677, Month: 9, Day: 21, Hour: 0, Minute: 12, Second: 43, Fraction: 145_224_192}, math.MinInt64, true},
		{"before earliest", buffers.Timestamp{Year: 1677, Month: 9, Day: 21, Hour: 0, Minute: 12, Second: 43, Fraction: 145_224_191}, 0, false},
		{"before epoch", buffers.Timestamp{Year: 1969, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 59, Fraction: 500_000_000}, -500_000_000, true},
		{"year 2300", buffers.Timestamp{Year: 2300, Month: 1, Day: 1}, 0, false},
		{"year 1600", buffers.Timestamp{Year: 1600, Month: 1, Day: 1}, 0, false},
	} {
		s.Run(tc.name, func() {
			col := buffers.NewFixedColumn[buffers.Timestamp](strategy.BufferDescription(), 2)
			col.Set(0, buffers.Timestamp{Year: 2000, Month: 1, Day: 1})
			col.Set(1, tc.ts)
			col.SetLen(2)

			arr, err := strategy.FillArrowArray(s.mem, col)
			if !tc.ok {
				s.Nil(arr)
				s.ErrorIs(err, columnstrategy.ErrInvalidValue)
				s.ErrorContains(err, "row 1")
				return
			}
			s.Require().NoError(err)
			defer arr.Release()
			s.Equal(arrow.Timestamp(tc.want), arr.(*array.Timestamp).Value(1))
		})
	}
}

func (s *FillSuite) TestTimestampKeepsTimeZone() {
	dtype := &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	strategy := s.choose(arrow.Field{Name: "t", Type: dtype, Nullable: true})

	col := buffers.NewFixedColumn[buffers.Timestamp](strategy.BufferDescription(), 2)
	col.Set(0, buffers.Timestamp{Year: 2024, Month: 2, Day: 29, Hour: 12, Minute: 30, Second: 15, Fraction: 123_456_789})
	col.SetNull(1)
	col.SetLen(2)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.True(arrow.TypeEqual(dtype, arr.DataType()))

	want := time.Date(2024, 2, 29, 12, 30, 15, 123_456_000, time.UTC).UnixMicro()
	s.Equal(arrow.Timestamp(want), arr.(*array.Timestamp).Value(0))
	s.True(arr.IsNull(1))
}

func (s *FillSuite) TestBufferMismatch() {
	strategy := s.choose(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: true})

	for name, col := range map[string]buffers.AnyColumnBuffer{
		"nil":          nil,
		"nullability":  buffers.NewFixedColumn[int32](buffers.FixedWidthDescription(false, buffers.CTypeI32), 1),
		"element type": buffers.NewFixedColumn[int64](buffers.FixedWidthDescription(true, buffers.CTypeI64), 1),
		"kind":         buffers.NewTextColumn(buffers.TextDescription(true, 4), 1),
	} {
		s.Run(name, func() {
			arr, err := strategy.FillArrowArray(s.mem, col)
			s.Nil(arr)
			s.ErrorIs(err, columnstrategy.ErrBufferMismatch)
		})
	}
}

// A buffer whose description matches but whose concrete type does not is
// rejected as well.
func (s *FillSuite) TestBufferMismatchConcreteType() {
	strategy := s.choose(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int32})
	col := buffers.NewFixedColumn[uint32](buffers.FixedWidthDescription(false, buffers.CTypeI32), 1)

	_, err := strategy.FillArrowArray(s.mem, col)
	s.ErrorIs(err, columnstrategy.ErrBufferMismatch)
}

func (s *FillSuite) TestEmptyBuffer() {
	strategy := s.choose(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	col := buffers.NewColumnBuffer(strategy.BufferDescription(), 16)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.Zero(arr.Len())
}

func noSQLType(t *testing.T) func() (buffers.DataType, error) {
	return func() (buffers.DataType, error) {
		t.Error("unexpected call to lazySQLType")
		return buffers.DataType{}, nil
	}
}

func noDisplaySize(t *testing.T) func() (int, error) {
	return func() (int, error) {
		t.Error("unexpected call to lazyDisplaySize")
		return 0, nil
	}
}
