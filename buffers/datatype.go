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

import "fmt"

// SQLType is an ODBC SQL data type code as reported by SQLDescribeCol.
type SQLType int16

const (
	SQLUnknown       SQLType = 0
	SQLChar          SQLType = 1
	SQLNumeric       SQLType = 2
	SQLDecimal       SQLType = 3
	SQLInteger       SQLType = 4
	SQLSmallInt      SQLType = 5
	SQLFloat         SQLType = 6
	SQLReal          SQLType = 7
	SQLDouble        SQLType = 8
	SQLVarchar       SQLType = 12
	SQLDate          SQLType = 91
	SQLTime          SQLType = 92
	SQLTimestamp     SQLType = 93
	SQLLongVarchar   SQLType = -1
	SQLBinary        SQLType = -2
	SQLVarbinary     SQLType = -3
	SQLLongVarbinary SQLType = -4
	SQLBigInt        SQLType = -5
	SQLTinyInt       SQLType = -6
	SQLBit           SQLType = -7
	SQLWChar         SQLType = -8
	SQLWVarchar      SQLType = -9
	SQLWLongVarchar  SQLType = -10
	SQLOther         SQLType = 1111
)

var sqlTypeNames = map[SQLType]string{
	SQLUnknown:       "Unknown",
	SQLChar:          "Char",
	SQLNumeric:       "Numeric",
	SQLDecimal:       "Decimal",
	SQLInteger:       "Integer",
	SQLSmallInt:      "SmallInt",
	SQLFloat:         "Float",
	SQLReal:          "Real",
	SQLDouble:        "Double",
	SQLVarchar:       "Varchar",
	SQLDate:          "Date",
	SQLTime:          "Time",
	SQLTimestamp:     "Timestamp",
	SQLLongVarchar:   "LongVarchar",
	SQLBinary:        "Binary",
	SQLVarbinary:     "Varbinary",
	SQLLongVarbinary: "LongVarbinary",
	SQLBigInt:        "BigInt",
	SQLTinyInt:       "TinyInt",
	SQLBit:           "Bit",
	SQLWChar:         "WChar",
	SQLWVarchar:      "WVarchar",
	SQLWLongVarchar:  "WLongVarchar",
	SQLOther:         "Other",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SQLType(%d)", int16(t))
}

// DataType is the native type of a column in the data source: its SQL type
// tag together with the reported column size and decimal digits.
type DataType struct {
	Code SQLType
	// ColumnSize is the length for character and binary types and the
	// precision for numeric types. Zero means no bound was reported.
	ColumnSize int
	// DecimalDigits is the scale for numeric types and the fractional
	// seconds precision for time types.
	DecimalDigits int
}

func (d DataType) String() string {
	switch d.Code {
	case SQLNumeric, SQLDecimal:
		return fmt.Sprintf("%s { precision: %d, scale: %d }", d.Code, d.ColumnSize, d.DecimalDigits)
	case SQLTime, SQLTimestamp:
		return fmt.Sprintf("%s { precision: %d }", d.Code, d.DecimalDigits)
	case SQLChar, SQLVarchar, SQLLongVarchar, SQLWChar, SQLWVarchar, SQLWLongVarchar,
		SQLBinary, SQLVarbinary, SQLLongVarbinary:
		return fmt.Sprintf("%s { length: %d }", d.Code, d.ColumnSize)
	default:
		return d.Code.String()
	}
}

func (d DataType) isNarrowText() bool {
	return d.Code == SQLChar || d.Code == SQLVarchar || d.Code == SQLLongVarchar
}

func (d DataType) isWideText() bool {
	return d.Code == SQLWChar || d.Code == SQLWVarchar || d.Code == SQLWLongVarchar
}

// textLen is the number of characters needed to render any value of the
// type, if that is statically known.
func (d DataType) textLen() (int, bool) {
	switch d.Code {
	case SQLNumeric, SQLDecimal:
		// sign and decimal point
		return d.ColumnSize + 2, true
	case SQLTinyInt:
		return 4, true
	case SQLSmallInt:
		return 6, true
	case SQLInteger:
		return 11, true
	case SQLBigInt:
		return 20, true
	case SQLBit:
		return 1, true
	case SQLDate:
		// yyyy-mm-dd
		return 10, true
	case SQLTime:
		// -hhh:mm:ss[.fff], intervals like MySQL TIME go past 24 hours
		if d.DecimalDigits > 0 {
			return 11 + d.DecimalDigits, true
		}
		return 10, true
	case SQLTimestamp:
		// yyyy-mm-dd hh:mm:ss[.fff]
		if d.DecimalDigits > 0 {
			return 20 + d.DecimalDigits, true
		}
		return 19, true
	default:
		return 0, false
	}
}

// UTF8Len is the number of octets required to hold any value of this type as
// UTF-8 text, if it can be derived from the type alone. ok is false if the
// display size has to be consulted instead.
func (d DataType) UTF8Len() (length int, ok bool) {
	switch {
	case d.isNarrowText():
		return d.ColumnSize, true
	case d.isWideText():
		// a character takes up to four octets in UTF-8
		return 4 * d.ColumnSize, true
	default:
		return d.textLen()
	}
}

// UTF16Len is the number of 16 bit units required to hold any value of this
// type as UTF-16 text, if it can be derived from the type alone.
func (d DataType) UTF16Len() (length int, ok bool) {
	switch {
	case d.isNarrowText():
		return d.ColumnSize, true
	case d.isWideText():
		// surrogate pairs
		return 2 * d.ColumnSize, true
	default:
		return d.textLen()
	}
}
