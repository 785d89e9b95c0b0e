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

// Binary fetches variable length binary values of up to Length bytes.
type Binary struct {
	Nullable bool
	Length   int
}

func (s Binary) BufferDescription() buffers.BufferDescription {
	return buffers.BinaryDescription(s.Nullable, s.Length)
}

func (s Binary) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.BinaryColumn](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bldr := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i := 0; i < view.Len(); i++ {
		value, ok := view.Value(i)
		if !ok {
			if !s.Nullable {
				return nil, unexpectedNullError(i)
			}
			bldr.AppendNull()
			continue
		}
		if err := checkTruncated(view, i, s.Length); err != nil {
			return nil, err
		}
		bldr.Append(value)
	}
	return bldr.NewArray(), nil
}

// FixedSizedBinary fetches binary values which are all exactly Length bytes
// long.
type FixedSizedBinary struct {
	Nullable bool
	Length   int
}

func (s FixedSizedBinary) BufferDescription() buffers.BufferDescription {
	return buffers.BinaryDescription(s.Nullable, s.Length)
}

func (s FixedSizedBinary) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.BinaryColumn](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bldr := array.NewFixedSizeBinaryBuilder(mem, &arrow.FixedSizeBinaryType{ByteWidth: s.Length})
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i := 0; i < view.Len(); i++ {
		value, ok := view.Value(i)
		if !ok {
			if !s.Nullable {
				return nil, unexpectedNullError(i)
			}
			bldr.AppendNull()
			continue
		}
		if err := checkTruncated(view, i, s.Length); err != nil {
			return nil, err
		}
		if len(value) != s.Length {
			return nil, fmt.Errorf("%w: row %d: expected %d bytes, got %d", ErrInvalidValue, i, s.Length, len(value))
		}
		bldr.Append(value)
	}
	return bldr.NewArray(), nil
}
