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

// Package columnstrategy decides, per column, which transit buffer to bind
// to an ODBC cursor and how to turn the filled buffer into an Arrow array.
package columnstrategy

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
)

// ColumnStrategy holds all decisions needed to copy data from a transit
// buffer into an Arrow array.
//
// Implementations hold no state across calls and may be shared by
// goroutines working on distinct buffers.
type ColumnStrategy interface {
	// BufferDescription describes the buffer which is bound to the cursor.
	BufferDescription() buffers.BufferDescription

	// FillArrowArray creates an Arrow array from a buffer of the shape
	// returned by BufferDescription. Any other buffer yields an error
	// wrapping ErrBufferMismatch.
	FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error)
}

// viewAs checks the precondition of FillArrowArray and returns the concrete
// buffer.
func viewAs[V buffers.AnyColumnBuffer](column buffers.AnyColumnBuffer, want buffers.BufferDescription) (V, error) {
	var zero V
	if column == nil {
		return zero, fmt.Errorf("%w: got no buffer, expected %s", ErrBufferMismatch, want)
	}
	if got := column.Description(); got != want {
		return zero, fmt.Errorf("%w: expected %s, got %s", ErrBufferMismatch, want, got)
	}
	view, ok := column.(V)
	if !ok {
		return zero, fmt.Errorf("%w: expected %T, got %T", ErrBufferMismatch, zero, column)
	}
	return view, nil
}

// NonNullableBoolean reads a bit column without indicators.
type NonNullableBoolean struct{}

func (NonNullableBoolean) BufferDescription() buffers.BufferDescription {
	return buffers.BitDescription(false)
}

func (s NonNullableBoolean) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.FixedColumn[buffers.Bit]](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bits := view.Slice()
	values := make([]bool, len(bits))
	for i, bit := range bits {
		values[i] = bit.AsBool()
	}

	bldr := array.NewBooleanBuilder(mem)
	defer bldr.Release()
	bldr.AppendValues(values, nil)
	return bldr.NewArray(), nil
}

// NullableBoolean reads a bit column, mapping missing values to null.
type NullableBoolean struct{}

func (NullableBoolean) BufferDescription() buffers.BufferDescription {
	return buffers.BitDescription(true)
}

func (s NullableBoolean) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.FixedColumn[buffers.Bit]](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bldr := array.NewBooleanBuilder(mem)
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i, bit := range view.Slice() {
		if view.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		bldr.Append(bit.AsBool())
	}
	return bldr.NewArray(), nil
}
