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
	"errors"
	"unicode/utf16"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/spiceai/arrow-odbc/buffers"
	"github.com/spiceai/arrow-odbc/columnstrategy"
	"github.com/spiceai/arrow-odbc/testutil"
)

func (s *FillSuite) TestNarrowText() {
	strategy := columnstrategy.NarrowText{Nullable: true, MaxStrLen: 8}
	col := testutil.TextBuffer(strategy.BufferDescription(),
		testutil.Ptr("hello"), nil, testutil.Ptr(""), testutil.Ptr("grüße"))

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.assertArray(arrow.BinaryTypes.String, `["hello", null, "", "grüße"]`, arr)
}

func (s *FillSuite) TestNarrowTextTruncated() {
	strategy := columnstrategy.NarrowText{Nullable: true, MaxStrLen: 8}
	// A TIME value with three hour digits in a buffer sized for hh:mm:ss
	col := testutil.TextBuffer(strategy.BufferDescription(), testutil.Ptr("12:00:00"), nil, testutil.Ptr("838:59:59"))

	arr, err := strategy.FillArrowArray(s.mem, col)
	s.Nil(arr)
	var truncated *columnstrategy.TruncatedValueError
	s.Require().ErrorAs(err, &truncated)
	s.Equal(2, truncated.Row)
	s.Equal(8, truncated.MaxLen)
}

func (s *FillSuite) TestNarrowTextNoTotal() {
	strategy := columnstrategy.NarrowText{Nullable: false, MaxStrLen: 4}
	col := buffers.NewTextColumn(strategy.BufferDescription(), 1)
	col.Indicators[0] = buffers.NoTotal
	col.SetLen(1)

	_, err := strategy.FillArrowArray(s.mem, col)
	var truncated *columnstrategy.TruncatedValueError
	s.ErrorAs(err, &truncated)
}

func (s *FillSuite) TestNarrowTextInvalidUTF8() {
	strategy := columnstrategy.NarrowText{Nullable: true, MaxStrLen: 4}
	col := buffers.NewTextColumn(strategy.BufferDescription(), 1)
	col.Set(0, []byte{0xff, 0xfe})
	col.SetLen(1)

	arr, err := strategy.FillArrowArray(s.mem, col)
	s.Nil(arr)
	s.ErrorIs(err, columnstrategy.ErrInvalidValue)
}

func (s *FillSuite) TestNarrowTextUnexpectedNull() {
	strategy := columnstrategy.NarrowText{Nullable: false, MaxStrLen: 4}
	col := buffers.NewTextColumn(strategy.BufferDescription(), 1)
	col.Indicators[0] = buffers.NullData
	col.SetLen(1)

	_, err := strategy.FillArrowArray(s.mem, col)
	s.ErrorIs(err, columnstrategy.ErrInvalidValue)
}

func (s *FillSuite) TestWideText() {
	strategy := columnstrategy.WideText{Nullable: true, MaxStrLen: 8}
	col := buffers.NewWideTextColumn(strategy.BufferDescription(), 3)
	col.Set(0, utf16.Encode([]rune("héllo")))
	col.SetNull(1)
	col.Set(2, utf16.Encode([]rune("\U0001F600")))
	col.SetLen(3)

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.assertArray(arrow.BinaryTypes.String, `["héllo", null, "😀"]`, arr)
}

func (s *FillSuite) TestWideTextTruncated() {
	strategy := columnstrategy.WideText{Nullable: false, MaxStrLen: 3}
	col := buffers.NewWideTextColumn(strategy.BufferDescription(), 2)
	col.Set(0, utf16.Encode([]rune("abc")))
	col.Set(1, utf16.Encode([]rune("abcd")))
	col.SetLen(2)

	_, err := strategy.FillArrowArray(s.mem, col)
	var truncated *columnstrategy.TruncatedValueError
	s.Require().ErrorAs(err, &truncated)
	s.Equal(1, truncated.Row)
}

func (s *FillSuite) TestBinaryTruncated() {
	strategy := columnstrategy.Binary{Nullable: true, Length: 2}
	col := buffers.NewBinaryColumn(strategy.BufferDescription(), 1)
	col.Set(0, []byte{1, 2, 3})
	col.SetLen(1)

	_, err := strategy.FillArrowArray(s.mem, col)
	var truncated *columnstrategy.TruncatedValueError
	s.Require().ErrorAs(err, &truncated)
	s.Equal(0, truncated.Row)
	s.Equal(2, truncated.MaxLen)
}

func (s *FillSuite) TestFixedSizedBinaryTruncated() {
	strategy := columnstrategy.FixedSizedBinary{Nullable: false, Length: 2}
	col := buffers.NewBinaryColumn(strategy.BufferDescription(), 1)
	col.Set(0, []byte{1, 2, 3})
	col.SetLen(1)

	_, err := strategy.FillArrowArray(s.mem, col)
	var truncated *columnstrategy.TruncatedValueError
	s.ErrorAs(err, &truncated)
}

func (s *FillSuite) TestBinary() {
	strategy := columnstrategy.Binary{Nullable: true, Length: 4}
	col := buffers.NewBinaryColumn(strategy.BufferDescription(), 3)
	col.Set(0, []byte{0xde, 0xad})
	col.SetNull(1)
	col.Set(2, []byte{})
	col.SetLen(3)

	arr := s.fill(strategy, col)
	defer arr.Release()
	bin := arr.(*array.Binary)
	s.Equal([]byte{0xde, 0xad}, bin.Value(0))
	s.True(bin.IsNull(1))
	s.True(bin.IsValid(2))
	s.Empty(bin.Value(2))
}

func (s *FillSuite) TestFixedSizedBinary() {
	strategy := s.choose(arrow.Field{Name: "uuid", Type: &arrow.FixedSizeBinaryType{ByteWidth: 2}, Nullable: true})
	s.Equal(buffers.BinaryDescription(true, 2), strategy.BufferDescription())

	col := buffers.NewBinaryColumn(strategy.BufferDescription(), 2)
	col.Set(0, []byte{1, 2})
	col.SetNull(1)
	col.SetLen(2)

	arr := s.fill(strategy, col)
	defer arr.Release()
	fsb := arr.(*array.FixedSizeBinary)
	s.Equal([]byte{1, 2}, fsb.Value(0))
	s.True(fsb.IsNull(1))
}

func (s *FillSuite) TestFixedSizedBinaryWrongLength() {
	strategy := columnstrategy.FixedSizedBinary{Nullable: false, Length: 4}
	col := buffers.NewBinaryColumn(strategy.BufferDescription(), 1)
	col.Set(0, []byte{1, 2})
	col.SetLen(1)

	_, err := strategy.FillArrowArray(s.mem, col)
	s.ErrorIs(err, columnstrategy.ErrInvalidValue)
}

func (s *FillSuite) TestDecimal() {
	dtype := &arrow.Decimal128Type{Precision: 5, Scale: 2}
	strategy := s.choose(arrow.Field{Name: "price", Type: dtype, Nullable: true})
	s.Equal(buffers.TextDescription(true, 7), strategy.BufferDescription())

	col := testutil.TextBuffer(strategy.BufferDescription(),
		testutil.Ptr("123.45"), testutil.Ptr("-0.50"), nil, testutil.Ptr("+1.00"))

	arr := s.fill(strategy, col)
	defer arr.Release()
	s.True(arrow.TypeEqual(dtype, arr.DataType()))

	decimals := arr.(*array.Decimal128)
	s.Equal(decimal128.FromI64(12345), decimals.Value(0))
	s.Equal(decimal128.FromI64(-50), decimals.Value(1))
	s.True(decimals.IsNull(2))
	s.Equal(decimal128.FromI64(100), decimals.Value(3))
}

// Digits are read as they are. A value rendered with fewer fractional
// digits than the scale ends up scaled differently.
func (s *FillSuite) TestDecimalScaleNotAdjusted() {
	strategy := columnstrategy.Decimal{Nullable: false, Precision: 3, Scale: 1}
	col := testutil.TextBuffer(strategy.BufferDescription(), testutil.Ptr("-0.5"), testutil.Ptr("12"))

	arr := s.fill(strategy, col)
	defer arr.Release()
	decimals := arr.(*array.Decimal128)
	s.Equal(decimal128.FromI64(-5), decimals.Value(0))
	s.Equal(decimal128.FromI64(12), decimals.Value(1))
}

func (s *FillSuite) TestDecimalMalformed() {
	strategy := columnstrategy.Decimal{Nullable: true, Precision: 5, Scale: 2}
	for _, text := range []string{"", "-", "1e5", "12,3", "--1", "1-"} {
		s.Run(text, func() {
			col := testutil.TextBuffer(strategy.BufferDescription(), testutil.Ptr("1.00"), testutil.Ptr(text))

			arr, err := strategy.FillArrowArray(s.mem, col)
			s.Nil(arr)
			var parseErr *columnstrategy.DecimalParseError
			s.Require().True(errors.As(err, &parseErr))
			s.Equal(1, parseErr.Row)
			s.Equal(text, parseErr.Text)
		})
	}
}

func (s *FillSuite) TestDecimalMaxPrecision() {
	strategy := columnstrategy.Decimal{Nullable: false, Precision: 38, Scale: 0}
	col := testutil.TextBuffer(strategy.BufferDescription(),
		testutil.Ptr("-99999999999999999999999999999999999999"))

	arr := s.fill(strategy, col)
	defer arr.Release()
	want, err := decimal128.FromString("-99999999999999999999999999999999999999", 38, 0)
	s.Require().NoError(err)
	s.Equal(want, arr.(*array.Decimal128).Value(0))
}

func (s *FillSuite) TestDecimalTruncated() {
	strategy := columnstrategy.Decimal{Nullable: false, Precision: 5, Scale: 2}
	col := testutil.TextBuffer(strategy.BufferDescription(), testutil.Ptr("123.45"), testutil.Ptr("12345.67"))

	arr, err := strategy.FillArrowArray(s.mem, col)
	s.Nil(arr)
	var truncated *columnstrategy.TruncatedValueError
	s.Require().ErrorAs(err, &truncated)
	s.Equal(1, truncated.Row)
	s.Equal(7, truncated.MaxLen)
}

func (s *FillSuite) TestDecimalExceedsPrecision() {
	strategy := columnstrategy.Decimal{Nullable: false, Precision: 5, Scale: 2}
	// Fits the buffer, but seven digits do not fit DECIMAL(5, 2)
	col := testutil.TextBuffer(strategy.BufferDescription(), testutil.Ptr("999.99"), testutil.Ptr("1234567"))

	arr, err := strategy.FillArrowArray(s.mem, col)
	s.Nil(arr)
	var parseErr *columnstrategy.DecimalParseError
	s.Require().True(errors.As(err, &parseErr))
	s.Equal(1, parseErr.Row)
	s.Equal("1234567", parseErr.Text)
}
