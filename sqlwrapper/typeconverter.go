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
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spiceai/arrow-odbc/buffers"
)

const (
	MetaKeyDatabaseTypeName           = "sql.database_type_name"
	MetaKeyColumnName                 = "sql.column_name"
	MetaKeyPrecision                  = "sql.precision"
	MetaKeyScale                      = "sql.scale"
	MetaKeyFractionalSecondsPrecision = "sql.fractional_seconds_precision"
	MetaKeyLength                     = "sql.length"
)

// The widest decimal a Decimal128 can hold.
const maxDecimalPrecision = 38

// TypeConverter allows higher-level drivers to customize how result set
// columns are described and which Arrow type they are read as.
type TypeConverter interface {
	// ConvertColumnType converts a SQL column type to an Arrow type and nullable flag
	// It also returns metadata that should be included in the Arrow field
	ConvertColumnType(colType *sql.ColumnType) (arrowType arrow.DataType, nullable bool, metadata arrow.Metadata, err error)

	// NativeType describes the column the way the data source reports it.
	NativeType(colType *sql.ColumnType) buffers.DataType
}

// DefaultTypeConverter provides the default SQL-to-Arrow type conversion
type DefaultTypeConverter struct{}

// convertPrecisionToTimeUnit converts fractional seconds precision to Arrow TimeUnit
// Clamps precision to maximum supported value (9 fractional digits = nanoseconds)
func convertPrecisionToTimeUnit(precision int64) arrow.TimeUnit {
	if precision > 9 {
		// Clamp to max supported precision
		precision = 9
	}
	return arrow.TimeUnit(max(precision, 0) / 3)
}

// BaseTypeName upper cases the type name of colType and strips an UNSIGNED
// qualifier, which drivers put either before or after the name.
func BaseTypeName(colType *sql.ColumnType) (name string, unsigned bool) {
	name = strings.ToUpper(strings.TrimSpace(colType.DatabaseTypeName()))
	if base, ok := strings.CutSuffix(name, " UNSIGNED"); ok {
		return base, true
	}
	if base, ok := strings.CutPrefix(name, "UNSIGNED "); ok {
		return base, true
	}
	return name, false
}

func clampInt(v int64) int {
	return int(min(max(v, 0), math.MaxInt32))
}

// NativeType implements TypeConverter. Unknown type names are reported as
// SQLUnknown, which the strategies read as text.
func (d DefaultTypeConverter) NativeType(colType *sql.ColumnType) buffers.DataType {
	typeName, _ := BaseTypeName(colType)
	dt := buffers.DataType{Code: nativeTypeCode(typeName)}

	switch dt.Code {
	case buffers.SQLDecimal, buffers.SQLNumeric:
		if precision, scale, ok := colType.DecimalSize(); ok {
			dt.ColumnSize = clampInt(precision)
			dt.DecimalDigits = clampInt(scale)
		}
	case buffers.SQLTime, buffers.SQLTimestamp:
		if precision, _, ok := colType.DecimalSize(); ok {
			dt.DecimalDigits = clampInt(min(precision, 9))
		}
	default:
		if length, ok := colType.Length(); ok {
			dt.ColumnSize = clampInt(length)
		}
	}
	return dt
}

func nativeTypeCode(typeName string) buffers.SQLType {
	switch typeName {
	case "CHAR", "CHARACTER":
		return buffers.SQLChar
	case "VARCHAR", "CHARACTER VARYING", "TINYTEXT":
		return buffers.SQLVarchar
	case "TEXT", "MEDIUMTEXT", "LONGTEXT", "JSON", "ENUM", "SET":
		return buffers.SQLLongVarchar
	case "NCHAR":
		return buffers.SQLWChar
	case "NVARCHAR":
		return buffers.SQLWVarchar
	case "NTEXT":
		return buffers.SQLWLongVarchar
	case "DECIMAL":
		return buffers.SQLDecimal
	case "NUMERIC":
		return buffers.SQLNumeric
	case "INT", "INTEGER", "MEDIUMINT":
		return buffers.SQLInteger
	case "SMALLINT":
		return buffers.SQLSmallInt
	case "TINYINT":
		return buffers.SQLTinyInt
	case "BIGINT":
		return buffers.SQLBigInt
	case "BIT", "BOOL", "BOOLEAN":
		return buffers.SQLBit
	case "FLOAT", "REAL":
		return buffers.SQLReal
	case "DOUBLE", "DOUBLE PRECISION":
		return buffers.SQLDouble
	case "DATE":
		return buffers.SQLDate
	case "TIME":
		return buffers.SQLTime
	case "DATETIME", "TIMESTAMP":
		return buffers.SQLTimestamp
	case "BINARY":
		return buffers.SQLBinary
	case "VARBINARY":
		return buffers.SQLVarbinary
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return buffers.SQLLongVarbinary
	default:
		return buffers.SQLUnknown
	}
}

// ConvertColumnType implements TypeConverter interface with the default conversion logic
func (d DefaultTypeConverter) ConvertColumnType(colType *sql.ColumnType) (arrow.DataType, bool, arrow.Metadata, error) {
	typeName, unsigned := BaseTypeName(colType)
	nullable, ok := colType.Nullable()
	if !ok {
		// Drivers which cannot tell may still send nulls
		nullable = true
	}

	metadataMap := map[string]string{
		MetaKeyDatabaseTypeName: colType.DatabaseTypeName(),
		MetaKeyColumnName:       colType.Name(),
	}

	switch typeName {
	case "DECIMAL", "NUMERIC":
		if precision, scale, ok := colType.DecimalSize(); ok {
			metadataMap[MetaKeyPrecision] = fmt.Sprintf("%d", precision)
			metadataMap[MetaKeyScale] = fmt.Sprintf("%d", scale)
			if precision < 1 || precision > maxDecimalPrecision || scale < 0 || scale > precision {
				// Too wide for Decimal128, keep the text
				return arrow.BinaryTypes.String, nullable, arrow.MetadataFrom(metadataMap), nil
			}
			arrowType := &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}
			return arrowType, nullable, arrow.MetadataFrom(metadataMap), nil
		}
		// Fall back to string if precision/scale not available
		return arrow.BinaryTypes.String, nullable, arrow.MetadataFrom(metadataMap), nil

	case "DATETIME", "TIMESTAMP":
		if precision, _, ok := colType.DecimalSize(); ok {
			// precision represents fractional seconds digits (0-9)
			metadataMap[MetaKeyFractionalSecondsPrecision] = fmt.Sprintf("%d", precision)
			timeUnit := convertPrecisionToTimeUnit(precision)
			return &arrow.TimestampType{Unit: timeUnit}, nullable, arrow.MetadataFrom(metadataMap), nil
		}
		// No precision info available, default to microseconds (most common)
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nullable, arrow.MetadataFrom(metadataMap), nil

	case "TIME":
		// Arrow time types have no transit buffer, read the rendered text
		if precision, _, ok := colType.DecimalSize(); ok {
			metadataMap[MetaKeyFractionalSecondsPrecision] = fmt.Sprintf("%d", precision)
		}
		return arrow.BinaryTypes.String, nullable, arrow.MetadataFrom(metadataMap), nil
	}

	length, hasLength := colType.Length()
	if hasLength {
		metadataMap[MetaKeyLength] = fmt.Sprintf("%d", length)
	}
	if precision, scale, ok := colType.DecimalSize(); ok {
		metadataMap[MetaKeyPrecision] = fmt.Sprintf("%d", precision)
		metadataMap[MetaKeyScale] = fmt.Sprintf("%d", scale)
	}

	var arrowType arrow.DataType
	if unsigned {
		arrowType = mapUnsignedTypeName(typeName)
	} else if typeName == "BINARY" && hasLength && length > 0 && length <= math.MaxInt32 {
		arrowType = &arrow.FixedSizeBinaryType{ByteWidth: int(length)}
	} else {
		arrowType = mapSQLTypeNameToArrowType(typeName)
	}
	return arrowType, nullable, arrow.MetadataFrom(metadataMap), nil
}

// mapUnsignedTypeName widens unsigned integers to the next signed type which
// holds every value.
func mapUnsignedTypeName(typeName string) arrow.DataType {
	switch typeName {
	case "TINYINT":
		return arrow.PrimitiveTypes.Uint8
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int32
	case "INT", "INTEGER", "MEDIUMINT":
		return arrow.PrimitiveTypes.Int64
	case "BIGINT":
		return &arrow.Decimal128Type{Precision: 20, Scale: 0}
	default:
		return mapSQLTypeNameToArrowType(typeName)
	}
}

// mapSQLTypeNameToArrowType converts an upper case SQL type name to the Arrow
// type it is read as.
func mapSQLTypeNameToArrowType(typeName string) arrow.DataType {
	switch typeName {
	// Integer types
	case "INT", "INTEGER", "MEDIUMINT":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT":
		return arrow.PrimitiveTypes.Int64
	case "SMALLINT":
		return arrow.PrimitiveTypes.Int16
	case "TINYINT":
		return arrow.PrimitiveTypes.Int8

	// Floating point types
	case "FLOAT", "REAL":
		return arrow.PrimitiveTypes.Float32
	case "DOUBLE", "DOUBLE PRECISION":
		return arrow.PrimitiveTypes.Float64

	// Binary types
	case "BINARY", "VARBINARY", "BLOB", "MEDIUMBLOB", "LONGBLOB", "TINYBLOB":
		return arrow.BinaryTypes.Binary

	// Date/time types
	case "DATE":
		return arrow.FixedWidthTypes.Date32

	// Boolean type
	case "BOOLEAN", "BOOL", "BIT":
		return arrow.FixedWidthTypes.Boolean

	// Text, JSON and anything unknown is read as a string
	default:
		return arrow.BinaryTypes.String
	}
}

// SchemaFromColumnTypes creates an Arrow schema from SQL column types using the type converter
func SchemaFromColumnTypes(columnTypes []*sql.ColumnType, typeConverter TypeConverter) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(columnTypes))
	for i, colType := range columnTypes {
		arrowType, nullable, metadata, err := typeConverter.ConvertColumnType(colType)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i, colType.Name(), err)
		}
		fields[i] = arrow.Field{
			Name:     colType.Name(),
			Type:     arrowType,
			Nullable: nullable,
			Metadata: metadata,
		}
	}
	return arrow.NewSchema(fields, nil), nil
}
