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

package buffers

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

const (
	// NullData is the indicator value of a missing element.
	NullData int64 = -1
	// NoTotal is reported by drivers which truncated a value without
	// knowing its full length.
	NoTotal int64 = -4
)

// Bit is a single boolean as bound to a bit column. Any non-zero value is
// true.
type Bit uint8

func (b Bit) AsBool() bool { return b != 0 }

func BitFromBool(v bool) Bit {
	if v {
		return 1
	}
	return 0
}

// Date has the layout of SQL_DATE_STRUCT.
type Date struct {
	Year  int16
	Month uint16
	Day   uint16
}

// Timestamp has the layout of SQL_TIMESTAMP_STRUCT. Fraction is in
// nanoseconds.
type Timestamp struct {
	Year     int16
	Month    uint16
	Day      uint16
	Hour     uint16
	Minute   uint16
	Second   uint16
	Fraction uint32
}

// FixedWidthValue is the set of element types a fixed width column can hold.
type FixedWidthValue interface {
	constraints.Integer | constraints.Float | Date | Timestamp
}

// AnyColumnBuffer is a transit buffer bound to a single column. The cursor
// fills up to Capacity rows and then reports how many through SetLen.
type AnyColumnBuffer interface {
	Description() BufferDescription
	Capacity() int
	Len() int
	SetLen(n int)
}

type rowCount struct {
	rows int
}

func (r *rowCount) Len() int { return r.rows }

func (r *rowCount) setLen(n, capacity int) {
	if n < 0 || n > capacity {
		panic(fmt.Sprintf("buffers: %d rows do not fit into a buffer of capacity %d", n, capacity))
	}
	r.rows = n
}

// FixedColumn holds fixed width elements. Indicators is nil unless the
// column is nullable.
type FixedColumn[T FixedWidthValue] struct {
	rowCount
	desc       BufferDescription
	Values     []T
	Indicators []int64
}

func NewFixedColumn[T FixedWidthValue](desc BufferDescription, capacity int) *FixedColumn[T] {
	col := &FixedColumn[T]{desc: desc, Values: make([]T, capacity)}
	if desc.Nullable {
		col.Indicators = make([]int64, capacity)
	}
	return col
}

func (c *FixedColumn[T]) Description() BufferDescription { return c.desc }
func (c *FixedColumn[T]) Capacity() int                  { return len(c.Values) }
func (c *FixedColumn[T]) SetLen(n int)                   { c.setLen(n, len(c.Values)) }

// Slice returns the values of the filled rows, whether null or not.
func (c *FixedColumn[T]) Slice() []T { return c.Values[:c.rows] }

func (c *FixedColumn[T]) IsNull(i int) bool {
	return c.Indicators != nil && c.Indicators[i] == NullData
}

func (c *FixedColumn[T]) Set(i int, v T) {
	c.Values[i] = v
	if c.Indicators != nil {
		c.Indicators[i] = 0
	}
}

func (c *FixedColumn[T]) SetNull(i int) {
	if c.Indicators == nil {
		panic("buffers: SetNull on a non-nullable column")
	}
	var zero T
	c.Values[i] = zero
	c.Indicators[i] = NullData
}

// variable holds the bookkeeping shared by the variable length buffers.
type variable struct {
	rowCount
	desc       BufferDescription
	Indicators []int64
}

func (v *variable) Description() BufferDescription { return v.desc }
func (v *variable) Capacity() int                  { return len(v.Indicators) }
func (v *variable) SetLen(n int)                   { v.setLen(n, len(v.Indicators)) }

// length is the number of elements stored for row i, given the indicator and
// the element width the indicator is measured in.
func (v *variable) length(i int, unit int64) (int, bool) {
	ind := v.Indicators[i]
	switch {
	case ind == NullData:
		return 0, false
	case ind == NoTotal || ind/unit > int64(v.desc.MaxLen):
		return v.desc.MaxLen, true
	case ind < 0:
		return 0, true
	default:
		return int(ind / unit), true
	}
}

// IsTruncated reports whether the value in row i did not fit the buffer.
func (v *variable) IsTruncated(i int) bool {
	ind := v.Indicators[i]
	if v.desc.Kind == KindWideText {
		return ind == NoTotal || ind/2 > int64(v.desc.MaxLen)
	}
	return ind == NoTotal || ind > int64(v.desc.MaxLen)
}

func (v *variable) SetNull(i int) {
	if !v.desc.Nullable {
		panic("buffers: SetNull on a non-nullable column")
	}
	v.Indicators[i] = NullData
}

// TextColumn holds narrow text. Each row has room for MaxLen octets plus a
// terminating zero.
type TextColumn struct {
	variable
	Values []byte
}

func NewTextColumn(desc BufferDescription, capacity int) *TextColumn {
	return &TextColumn{
		variable: variable{desc: desc, Indicators: make([]int64, capacity)},
		Values:   make([]byte, capacity*(desc.MaxLen+1)),
	}
}

// Value returns the text in row i. ok is false for null.
func (c *TextColumn) Value(i int) (text []byte, ok bool) {
	n, ok := c.length(i, 1)
	if !ok {
		return nil, false
	}
	start := i * (c.desc.MaxLen + 1)
	return c.Values[start : start+n], true
}

// Set copies text into row i, truncating it to MaxLen. The indicator keeps
// the full length, as a driver would report it.
func (c *TextColumn) Set(i int, text []byte) {
	start := i * (c.desc.MaxLen + 1)
	n := copy(c.Values[start:start+c.desc.MaxLen], text)
	c.Values[start+n] = 0
	c.Indicators[i] = int64(len(text))
}

// WideTextColumn holds UTF-16 text. Indicators are in bytes.
type WideTextColumn struct {
	variable
	Values []uint16
}

func NewWideTextColumn(desc BufferDescription, capacity int) *WideTextColumn {
	return &WideTextColumn{
		variable: variable{desc: desc, Indicators: make([]int64, capacity)},
		Values:   make([]uint16, capacity*(desc.MaxLen+1)),
	}
}

func (c *WideTextColumn) Value(i int) (text []uint16, ok bool) {
	n, ok := c.length(i, 2)
	if !ok {
		return nil, false
	}
	start := i * (c.desc.MaxLen + 1)
	return c.Values[start : start+n], true
}

func (c *WideTextColumn) Set(i int, text []uint16) {
	start := i * (c.desc.MaxLen + 1)
	n := copy(c.Values[start:start+c.desc.MaxLen], text)
	c.Values[start+n] = 0
	c.Indicators[i] = 2 * int64(len(text))
}

// BinaryColumn holds variable length binary values of up to MaxLen bytes.
type BinaryColumn struct {
	variable
	Values []byte
}

func NewBinaryColumn(desc BufferDescription, capacity int) *BinaryColumn {
	return &BinaryColumn{
		variable: variable{desc: desc, Indicators: make([]int64, capacity)},
		Values:   make([]byte, capacity*desc.MaxLen),
	}
}

func (c *BinaryColumn) Value(i int) (value []byte, ok bool) {
	n, ok := c.length(i, 1)
	if !ok {
		return nil, false
	}
	start := i * c.desc.MaxLen
	return c.Values[start : start+n], true
}

func (c *BinaryColumn) Set(i int, value []byte) {
	start := i * c.desc.MaxLen
	copy(c.Values[start:start+c.desc.MaxLen], value)
	c.Indicators[i] = int64(len(value))
}

// NewColumnBuffer allocates the buffer matching desc. It panics on a
// description no strategy can produce.
func NewColumnBuffer(desc BufferDescription, capacity int) AnyColumnBuffer {
	switch desc.Kind {
	case KindBit:
		return NewFixedColumn[Bit](desc, capacity)
	case KindText:
		return NewTextColumn(desc, capacity)
	case KindWideText:
		return NewWideTextColumn(desc, capacity)
	case KindBinary:
		return NewBinaryColumn(desc, capacity)
	case KindFixedWidth:
		switch desc.CType {
		case CTypeI8:
			return NewFixedColumn[int8](desc, capacity)
		case CTypeI16:
			return NewFixedColumn[int16](desc, capacity)
		case CTypeI32:
			return NewFixedColumn[int32](desc, capacity)
		case CTypeI64:
			return NewFixedColumn[int64](desc, capacity)
		case CTypeU8:
			return NewFixedColumn[uint8](desc, capacity)
		case CTypeF32:
			return NewFixedColumn[float32](desc, capacity)
		case CTypeF64:
			return NewFixedColumn[float64](desc, capacity)
		case CTypeDate:
			return NewFixedColumn[Date](desc, capacity)
		case CTypeTimestamp:
			return NewFixedColumn[Timestamp](desc, capacity)
		}
	}
	panic(fmt.Sprintf("buffers: cannot allocate a buffer for %s", desc))
}
