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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
)

const maxDecimal128Precision = 38

var ten = decimal128.FromU64(10)

// Decimal fetches decimals as text and parses them into 128-bit integers.
// The text is expected to carry exactly Scale fractional digits, as drivers
// render a DECIMAL(p, s) column. The radix character is dropped and the
// remaining digits are read as the unscaled value. Text with more than
// Precision digits is a DecimalParseError.
type Decimal struct {
	Nullable  bool
	Precision int32
	Scale     int32
}

func newDecimal(nullable bool, precision, scale int32) (ColumnStrategy, error) {
	if precision < 1 || precision > maxDecimal128Precision {
		return nil, &UnsupportedArrowTypeError{Type: &arrow.Decimal128Type{Precision: precision, Scale: scale}}
	}
	return Decimal{Nullable: nullable, Precision: precision, Scale: scale}, nil
}

// BufferDescription leaves room for a sign and a radix character.
func (s Decimal) BufferDescription() buffers.BufferDescription {
	return buffers.TextDescription(s.Nullable, int(s.Precision)+2)
}

func (s Decimal) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.TextColumn](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bldr := array.NewDecimal128Builder(mem, &arrow.Decimal128Type{Precision: s.Precision, Scale: s.Scale})
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i := 0; i < view.Len(); i++ {
		text, ok := view.Value(i)
		if !ok {
			if !s.Nullable {
				return nil, unexpectedNullError(i)
			}
			bldr.AppendNull()
			continue
		}
		if err := checkTruncated(view, i, int(s.Precision)+2); err != nil {
			return nil, err
		}
		n, ok := parseDecimal(text, min(int(s.Precision), maxDecimal128Precision))
		if !ok {
			return nil, &DecimalParseError{Row: i, Text: string(text)}
		}
		bldr.Append(n)
	}
	return bldr.NewArray(), nil
}

// parseDecimal reads text with all '.' bytes removed as a signed base 10
// integer of at most precision digits.
func parseDecimal(text []byte, precision int) (decimal128.Num, bool) {
	var (
		n        decimal128.Num
		negative bool
		digits   int
	)
	for i, c := range text {
		switch {
		case c == '.':
		case (c == '-' || c == '+') && i == 0:
			negative = c == '-'
		case c >= '0' && c <= '9':
			digits++
			if digits > precision {
				return decimal128.Num{}, false
			}
			n = n.Mul(ten).Add(decimal128.FromU64(uint64(c - '0')))
		default:
			return decimal128.Num{}, false
		}
	}
	if digits == 0 {
		return decimal128.Num{}, false
	}
	if negative {
		n = n.Negate()
	}
	return n, true
}
