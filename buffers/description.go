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

// Package buffers describes and holds the column buffers bound to a cursor
// for data in transit, before it is converted into Arrow arrays.
package buffers

import (
	"fmt"
	"unsafe"
)

// BufferKind is the shape of a transit buffer.
type BufferKind int8

const (
	KindBit BufferKind = iota
	KindFixedWidth
	KindText
	KindWideText
	KindBinary
)

func (k BufferKind) String() string {
	switch k {
	case KindBit:
		return "bit"
	case KindFixedWidth:
		return "fixed_width"
	case KindText:
		return "text"
	case KindWideText:
		return "wide_text"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("BufferKind(%d)", int8(k))
	}
}

// CType is the C representation of a fixed width element.
type CType int8

const (
	CTypeNone CType = iota
	CTypeI8
	CTypeI16
	CTypeI32
	CTypeI64
	CTypeU8
	CTypeF32
	CTypeF64
	CTypeDate
	CTypeTimestamp
)

var cTypeNames = [...]string{
	CTypeNone:      "none",
	CTypeI8:        "i8",
	CTypeI16:       "i16",
	CTypeI32:       "i32",
	CTypeI64:       "i64",
	CTypeU8:        "u8",
	CTypeF32:       "f32",
	CTypeF64:       "f64",
	CTypeDate:      "date",
	CTypeTimestamp: "timestamp",
}

func (c CType) String() string {
	if c >= 0 && int(c) < len(cTypeNames) {
		return cTypeNames[c]
	}
	return fmt.Sprintf("CType(%d)", int8(c))
}

// Width is the size in bytes of one element of this C type.
func (c CType) Width() int {
	switch c {
	case CTypeI8, CTypeU8:
		return 1
	case CTypeI16:
		return 2
	case CTypeI32, CTypeF32:
		return 4
	case CTypeI64, CTypeF64:
		return 8
	case CTypeDate:
		return int(unsafe.Sizeof(Date{}))
	case CTypeTimestamp:
		return int(unsafe.Sizeof(Timestamp{}))
	default:
		return 0
	}
}

// BufferDescription is everything the cursor needs to know to bind a column
// buffer. A strategy describes the buffer it expects and the filling side
// must produce exactly that shape.
type BufferDescription struct {
	Nullable bool
	Kind     BufferKind
	// CType is only meaningful for KindFixedWidth.
	CType CType
	// MaxLen is the maximum element length for text (in characters of the
	// encoding) and binary (in bytes) kinds.
	MaxLen int
}

func BitDescription(nullable bool) BufferDescription {
	return BufferDescription{Nullable: nullable, Kind: KindBit}
}

func FixedWidthDescription(nullable bool, ctype CType) BufferDescription {
	return BufferDescription{Nullable: nullable, Kind: KindFixedWidth, CType: ctype}
}

// TextDescription describes a narrow (UTF-8) text buffer. Text buffers
// always carry indicators, since the length of every value is reported
// through them.
func TextDescription(nullable bool, maxLen int) BufferDescription {
	return BufferDescription{Nullable: nullable, Kind: KindText, MaxLen: maxLen}
}

// WideTextDescription describes a UTF-16 text buffer; maxLen is in 16 bit
// units.
func WideTextDescription(nullable bool, maxLen int) BufferDescription {
	return BufferDescription{Nullable: nullable, Kind: KindWideText, MaxLen: maxLen}
}

func BinaryDescription(nullable bool, maxLen int) BufferDescription {
	return BufferDescription{Nullable: nullable, Kind: KindBinary, MaxLen: maxLen}
}

// ElementSize is the number of bytes a single row occupies in a buffer of
// this description, including its length/null indicator.
func (d BufferDescription) ElementSize() int {
	const indicator = int(unsafe.Sizeof(int64(0)))
	switch d.Kind {
	case KindBit:
		if d.Nullable {
			return 1 + indicator
		}
		return 1
	case KindFixedWidth:
		if d.Nullable {
			return d.CType.Width() + indicator
		}
		return d.CType.Width()
	case KindText:
		// terminating zero
		return d.MaxLen + 1 + indicator
	case KindWideText:
		return 2*(d.MaxLen+1) + indicator
	case KindBinary:
		return d.MaxLen + indicator
	default:
		return 0
	}
}

func (d BufferDescription) String() string {
	switch d.Kind {
	case KindFixedWidth:
		return fmt.Sprintf("%s(%s, nullable=%t)", d.Kind, d.CType, d.Nullable)
	case KindText, KindWideText, KindBinary:
		return fmt.Sprintf("%s(%d, nullable=%t)", d.Kind, d.MaxLen, d.Nullable)
	default:
		return fmt.Sprintf("%s(nullable=%t)", d.Kind, d.Nullable)
	}
}
