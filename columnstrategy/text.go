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
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
	"golang.org/x/text/encoding/unicode"
)

// NarrowText fetches text as UTF-8 octets. MaxStrLen is in bytes.
type NarrowText struct {
	Nullable  bool
	MaxStrLen int
}

func (s NarrowText) BufferDescription() buffers.BufferDescription {
	return buffers.TextDescription(s.Nullable, s.MaxStrLen)
}

func (s NarrowText) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.TextColumn](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	bldr := array.NewStringBuilder(mem)
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
		if err := checkTruncated(view, i, s.MaxStrLen); err != nil {
			return nil, err
		}
		if !utf8.Valid(text) {
			return nil, fmt.Errorf("%w: row %d: text is not valid UTF-8", ErrInvalidValue, i)
		}
		bldr.BinaryBuilder.Append(text)
	}
	return bldr.NewArray(), nil
}

// WideText fetches text as UTF-16 and transcodes it to UTF-8. MaxStrLen is
// in 16-bit code units.
type WideText struct {
	Nullable  bool
	MaxStrLen int
}

func (s WideText) BufferDescription() buffers.BufferDescription {
	return buffers.WideTextDescription(s.Nullable, s.MaxStrLen)
}

func (s WideText) FillArrowArray(mem memory.Allocator, column buffers.AnyColumnBuffer) (arrow.Array, error) {
	view, err := viewAs[*buffers.WideTextColumn](column, s.BufferDescription())
	if err != nil {
		return nil, err
	}

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	raw := make([]byte, 0, 2*s.MaxStrLen)

	bldr := array.NewStringBuilder(mem)
	defer bldr.Release()
	bldr.Reserve(view.Len())
	for i := 0; i < view.Len(); i++ {
		units, ok := view.Value(i)
		if !ok {
			if !s.Nullable {
				return nil, unexpectedNullError(i)
			}
			bldr.AppendNull()
			continue
		}
		if err := checkTruncated(view, i, s.MaxStrLen); err != nil {
			return nil, err
		}
		raw = raw[:0]
		for _, u := range units {
			raw = binary.LittleEndian.AppendUint16(raw, u)
		}
		text, err := decoder.Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidValue, i, err)
		}
		bldr.BinaryBuilder.Append(text)
	}
	return bldr.NewArray(), nil
}

// chooseTextStrategy sizes the text buffer of a string column. The length is
// taken from the data type where it can be derived, otherwise from the
// display size, and finally bounded by maxTextSize.
func chooseTextStrategy(sqlType buffers.DataType, lazyDisplaySize func() (int, error), nullable bool, maxTextSize int, encoding TextEncoding) (ColumnStrategy, error) {
	wide := encoding.isWide()

	length, ok := sqlType.UTF8Len()
	if wide {
		length, ok = sqlType.UTF16Len()
	}
	if !ok {
		display, err := lazyDisplaySize()
		if err != nil {
			return nil, &UnknownStringLengthError{SQLType: sqlType, Err: err}
		}
		display = max(display, 0)
		// A character takes up to four octets in UTF-8 and up to two code
		// units in UTF-16.
		if wide {
			length = 2 * display
		} else {
			length = 4 * display
		}
	}

	length, err := ResolveBufferLength(sqlType, length, maxTextSize)
	if err != nil {
		return nil, err
	}
	if wide {
		return WideText{Nullable: nullable, MaxStrLen: length}, nil
	}
	return NarrowText{Nullable: nullable, MaxStrLen: length}, nil
}
