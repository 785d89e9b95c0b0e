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
	"errors"
	"fmt"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spiceai/arrow-odbc/buffers"
)

// ErrBufferMismatch is returned by FillArrowArray when it is handed a buffer
// of a different shape than the one the strategy described.
var ErrBufferMismatch = errors.New("column buffer does not match the strategy's buffer description")

// ErrInvalidValue is wrapped by row-level failures of a fill: text that is
// not valid UTF-8, binary values of the wrong width, or nulls in a column
// declared non-nullable.
var ErrInvalidValue = errors.New("invalid value in column buffer")

// ZeroSizedColumnError means the data source reported a size of zero for a
// column and no upper limit was configured.
type ZeroSizedColumnError struct {
	SQLType buffers.DataType
}

func (e *ZeroSizedColumnError) Error() string {
	return fmt.Sprintf("ODBC reported a size of '0' for the column. This might indicate that the driver cannot "+
		"specify a sensible upper bound for the column. E.g. for cases like VARCHAR(max). Try casting the column "+
		"into a type with a sensible upper bound, or set a maximum buffer size. The type of the column causing "+
		"this error is %s.", e.SQLType)
}

// UnknownStringLengthError means the display size needed to size a text
// buffer could not be retrieved.
type UnknownStringLengthError struct {
	SQLType buffers.DataType
	Err     error
}

func (e *UnknownStringLengthError) Error() string {
	return fmt.Sprintf("unable to deduce the maximum string length for the SQL data type reported by the "+
		"ODBC driver. Reported SQL data type is: %s. Error fetching column display or octet size: %v",
		e.SQLType, e.Err)
}

func (e *UnknownStringLengthError) Unwrap() error { return e.Err }

// UnsupportedArrowTypeError means the target schema asks for a type which
// cannot be fetched.
type UnsupportedArrowTypeError struct {
	Type arrow.DataType
}

func (e *UnsupportedArrowTypeError) Error() string {
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}
	return fmt.Sprintf("unsupported arrow type: `%s`. This type can currently not be fetched from an ODBC "+
		"data source", name)
}

// FailedToDescribeColumnError means the native type of the column could not
// be retrieved from the result set.
type FailedToDescribeColumnError struct {
	Err error
}

func (e *FailedToDescribeColumnError) Error() string {
	return fmt.Sprintf("an error occurred fetching the column description or data type from the metadata "+
		"attached to the ODBC result set: %v", e.Err)
}

func (e *FailedToDescribeColumnError) Unwrap() error { return e.Err }

// TooLargeError is returned instead of allocating a transit buffer whose
// size is not sane. Only produced with fallible allocations enabled.
type TooLargeError struct {
	NumElements int
	ElementSize int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("column buffer is too large to be allocated. Tried to allocate %d elements with %d "+
		"bytes in size each", e.NumElements, e.ElementSize)
}

// DecimalParseError is returned when a row of a decimal column holds text
// which is not a plain signed decimal number.
type DecimalParseError struct {
	Row  int
	Text string
}

func (e *DecimalParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %q as a decimal", e.Row, e.Text)
}

// TruncatedValueError means the value in Row did not fit a transit buffer of
// MaxLen elements. Raising max_text_size or max_binary_size, or casting the
// column to a type with a sensible upper bound, makes room for it.
type TruncatedValueError struct {
	Row    int
	MaxLen int
}

func (e *TruncatedValueError) Error() string {
	return fmt.Sprintf("row %d: value does not fit into a buffer of %d elements and would be truncated. "+
		"Increase the maximum buffer size for the column", e.Row, e.MaxLen)
}

// ColumnError attaches the name and position of the column to a failure.
type ColumnError struct {
	Name  string
	Index int
	Err   error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q (index %d): %v", e.Name, e.Index, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// IntoColumnError annotates err with the column it happened for. Returns nil
// for a nil err.
func IntoColumnError(err error, name string, index int) error {
	if err == nil {
		return nil
	}
	return &ColumnError{Name: name, Index: index, Err: err}
}

// Status maps a failure of this package to an ADBC status code.
func Status(err error) adbc.Status {
	var (
		zeroSized   *ZeroSizedColumnError
		unknownLen  *UnknownStringLengthError
		unsupported *UnsupportedArrowTypeError
		describe    *FailedToDescribeColumnError
		tooLarge    *TooLargeError
		parse       *DecimalParseError
		truncated   *TruncatedValueError
	)
	switch {
	case err == nil:
		return adbc.StatusOK
	case errors.As(err, &unsupported):
		return adbc.StatusNotImplemented
	case errors.As(err, &describe), errors.As(err, &unknownLen):
		return adbc.StatusIO
	case errors.As(err, &zeroSized), errors.As(err, &tooLarge), errors.As(err, &truncated):
		return adbc.StatusInvalidArgument
	case errors.As(err, &parse), errors.Is(err, ErrInvalidValue):
		return adbc.StatusInvalidData
	case errors.Is(err, ErrBufferMismatch):
		return adbc.StatusInternal
	default:
		return adbc.StatusUnknown
	}
}

// truncatable is implemented by the variable length transit buffers.
type truncatable interface {
	IsTruncated(i int) bool
}

func checkTruncated(view truncatable, row, maxLen int) error {
	if view.IsTruncated(row) {
		return &TruncatedValueError{Row: row, MaxLen: maxLen}
	}
	return nil
}

func unexpectedNullError(row int) error {
	return fmt.Errorf("%w: row %d: null in a non-nullable column", ErrInvalidValue, row)
}
