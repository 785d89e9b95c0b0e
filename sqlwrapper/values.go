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

package sqlwrapper

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/spiceai/arrow-odbc/buffers"
	"golang.org/x/exp/constraints"
)

var errNullInNonNullable = errors.New("null in a non-nullable column")

type number interface {
	constraints.Integer | constraints.Float
}

func isFloat[T number]() bool {
	switch any(*new(T)).(type) {
	case float32, float64:
		return true
	}
	return false
}

func fromInt64[T number](v int64) (T, error) {
	t := T(v)
	if !isFloat[T]() && (int64(t) != v || (t < 0) != (v < 0)) {
		return 0, fmt.Errorf("value %d out of range for %T", v, t)
	}
	return t, nil
}

func fromUint64[T number](v uint64) (T, error) {
	t := T(v)
	if !isFloat[T]() && (uint64(t) != v || t < 0) {
		return 0, fmt.Errorf("value %d out of range for %T", v, t)
	}
	return t, nil
}

func parseNumber[T number](s string) (T, error) {
	s = strings.TrimSpace(s)
	if isFloat[T]() {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to %T: %w", s, *new(T), err)
		}
		return T(parsed), nil
	}
	if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromInt64[T](parsed)
	}
	parsed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to %T: %w", s, *new(T), err)
	}
	return fromUint64[T](parsed)
}

// convertToNumericType converts a SQL value to the target numeric type T,
// failing on values T cannot represent.
func convertToNumericType[T number](val any) (T, error) {
	switch v := val.(type) {
	case int:
		return fromInt64[T](int64(v))
	case int8:
		return fromInt64[T](int64(v))
	case int16:
		return fromInt64[T](int64(v))
	case int32:
		return fromInt64[T](int64(v))
	case int64:
		return fromInt64[T](v)
	case uint:
		return fromUint64[T](uint64(v))
	case uint8:
		return fromUint64[T](uint64(v))
	case uint16:
		return fromUint64[T](uint64(v))
	case uint32:
		return fromUint64[T](uint64(v))
	case uint64:
		return fromUint64[T](v)
	case float32:
		return T(v), nil
	case float64:
		return T(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumber[T](string(v))
	case string:
		return parseNumber[T](v)
	default:
		return 0, fmt.Errorf("cannot convert %T to %T", val, *new(T))
	}
}

// convertToBool converts a SQL value to bool type
func convertToBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	default:
		n, err := convertToNumericType[float64](val)
		if err != nil {
			return false, fmt.Errorf("cannot convert %T to bool", val)
		}
		return n != 0, nil
	}
}

func parseBool(s string) (bool, error) {
	// BIT(1) columns arrive as a single raw byte
	if len(s) == 1 && (s[0] == 0 || s[0] == 1) {
		return s[0] == 1, nil
	}
	boolVal, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("cannot convert %q to bool: %w", s, err)
	}
	return boolVal, nil
}

// convertToString converts a SQL value to its text representation
func convertToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02 15:04:05.999999999")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// convertToBinary converts a SQL value to []byte type
func convertToBinary(val any) []byte {
	switch v := val.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return fmt.Appendf(nil, "%v", val)
	}
}

// convertToTime converts a SQL value to a time.Time.
func convertToTime(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to timestamp, expected time.Time", val)
	}
}

func parseTime(s string) (time.Time, error) {
	// Common layouts used by databases
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not parse timestamp string: %q", s)
}

// unwrap unwraps SQL nullable types using the driver.Valuer interface.
// Returns the underlying value or nil if the value was NULL in the database.
func unwrap(val any) (any, error) {
	if v, ok := val.(driver.Valuer); ok {
		return v.Value()
	}
	return val, nil
}

func setNumber[T number](col *buffers.FixedColumn[T], row int, val any) error {
	v, err := convertToNumericType[T](val)
	if err != nil {
		return err
	}
	col.Set(row, v)
	return nil
}

// setValue writes a scanned value into row of the transit buffer, converting
// it to the representation the buffer is bound with.
func setValue(col buffers.AnyColumnBuffer, row int, val any) error {
	val, err := unwrap(val)
	if err != nil {
		return fmt.Errorf("failed to unwrap value: %w", err)
	}
	if val == nil {
		if !col.Description().Nullable {
			return errNullInNonNullable
		}
		col.(interface{ SetNull(int) }).SetNull(row)
		return nil
	}

	switch col := col.(type) {
	case *buffers.FixedColumn[buffers.Bit]:
		v, err := convertToBool(val)
		if err != nil {
			return err
		}
		col.Set(row, buffers.BitFromBool(v))
	case *buffers.FixedColumn[int8]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[int16]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[int32]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[int64]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[uint8]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[float32]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[float64]:
		return setNumber(col, row, val)
	case *buffers.FixedColumn[buffers.Date]:
		t, err := convertToTime(val)
		if err != nil {
			return err
		}
		col.Set(row, buffers.Date{Year: int16(t.Year()), Month: uint16(t.Month()), Day: uint16(t.Day())})
	case *buffers.FixedColumn[buffers.Timestamp]:
		t, err := convertToTime(val)
		if err != nil {
			return err
		}
		col.Set(row, buffers.Timestamp{
			Year:     int16(t.Year()),
			Month:    uint16(t.Month()),
			Day:      uint16(t.Day()),
			Hour:     uint16(t.Hour()),
			Minute:   uint16(t.Minute()),
			Second:   uint16(t.Second()),
			Fraction: uint32(t.Nanosecond()),
		})
	case *buffers.TextColumn:
		col.Set(row, []byte(convertToString(val)))
	case *buffers.WideTextColumn:
		col.Set(row, utf16.Encode([]rune(convertToString(val))))
	case *buffers.BinaryColumn:
		col.Set(row, convertToBinary(val))
	default:
		return fmt.Errorf("unsupported transit buffer %T", col)
	}
	return nil
}
