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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
)

// Conversion maps a transit value of type S onto an Arrow value of type T.
// Convert must be a pure function. An error fails the row, it should wrap
// ErrInvalidValue.
type Conversion[S buffers.FixedWidthValue, T any] interface {
	CType() buffers.CType
	Convert(S) (T, error)
}

type appendBuilder[T any] interface {
	array.Builder
	Append(T)
}

// WithConversion applies a Conversion to every present value of a fixed
// width column. Nulls are carried forward unchanged.
type WithConversion[S buffers.FixedWidthValue, T any] struct {
	dtype       arrow.DataType
	description buffers.BufferDescription
	conversion  Conversion[S, T]
}

func newWithConversion[S buffers.FixedWidthValue, T any](dtype arrow.DataType, nullable bool, conversion Conversion[S, T]) ColumnStrategy {
	return &WithConversion[S, T]{
		dtype:       dtype,
		description: buffers.FixedWidthDescription(nullable, conversion.CType()),
		conversion:  conversion,
	}
}

func (s *WithConversion[S, T]) BufferDescription() buffers.BufferDescription {
	return s.description
}

func (s *WithConversion[S, T]) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.FixedColumn[S]](column, s.description)
	if err != nil {
		return nil, err
	}

	bldr := array.NewBuilder(mem, s.dtype).(appendBuilder[T])
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i, value := range view.Slice() {
		if view.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		converted, err := s.conversion.Convert(value)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		bldr.Append(converted)
	}
	return bldr.NewArray(), nil
}
