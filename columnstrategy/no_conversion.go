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
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
)

// NativeValue is the set of element types whose transit representation is
// bit identical to the Arrow representation.
type NativeValue interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~float32 | ~float64
}

// valuesBuilder is satisfied by the primitive builders of arrow/array, e.g.
// *array.Int32Builder for int32.
type valuesBuilder[T any] interface {
	array.Builder
	AppendValues(v []T, valid []bool)
}

// NoConversion copies fixed width values as they are. For nullable columns
// the indicators become the validity bitmap.
type NoConversion[T NativeValue] struct {
	dtype       arrow.DataType
	description buffers.BufferDescription
}

func newNoConversion[T NativeValue](dtype arrow.DataType, ctype buffers.CType, nullable bool) ColumnStrategy {
	return &NoConversion[T]{
		dtype:       dtype,
		description: buffers.FixedWidthDescription(nullable, ctype),
	}
}

func (s *NoConversion[T]) BufferDescription() buffers.BufferDescription {
	return s.description
}

func (s *NoConversion[T]) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.FixedColumn[T]](column, s.description)
	if err != nil {
		return nil, err
	}

	values := view.Slice()
	var valid []bool
	if s.description.Nullable {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = !view.IsNull(i)
		}
	}

	bldr := array.NewBuilder(mem, s.dtype).(valuesBuilder[T])
	defer bldr.Release()
	bldr.AppendValues(values, valid)
	return bldr.NewArray(), nil
}
