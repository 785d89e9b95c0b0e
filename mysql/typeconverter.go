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

package mysql

import (
	"database/sql"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spiceai/arrow-odbc/buffers"
	"github.com/spiceai/arrow-odbc/sqlwrapper"
)

const (
	maxBitWidth   = 64
	maxTinyLength = 255
)

const (
	MetaKeyIsJSON    = "mysql.is_json"
	MetaKeyIsSpatial = "mysql.is_spatial"
	MetaKeyIsEnumSet = "mysql.is_enum_set"
)

// TypeConverter provides MySQL-specific type conversion enhancements
type TypeConverter struct {
	sqlwrapper.DefaultTypeConverter
}

func isSpatial(typeName string) bool {
	switch typeName {
	case "GEOMETRY", "POINT", "LINESTRING", "POLYGON", "MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION":
		return true
	}
	return false
}

func nullable(colType *sql.ColumnType) bool {
	if nullable, ok := colType.Nullable(); ok {
		return nullable
	}
	return true
}

func metadata(colType *sql.ColumnType, flag string) arrow.Metadata {
	metadataMap := map[string]string{
		sqlwrapper.MetaKeyDatabaseTypeName: colType.DatabaseTypeName(),
		sqlwrapper.MetaKeyColumnName:       colType.Name(),
	}
	if flag != "" {
		metadataMap[flag] = "true"
	}
	if length, ok := colType.Length(); ok {
		metadataMap[sqlwrapper.MetaKeyLength] = fmt.Sprintf("%d", length)
	}
	return arrow.MetadataFrom(metadataMap)
}

// ConvertColumnType implements sqlwrapper.TypeConverter.
func (m TypeConverter) ConvertColumnType(colType *sql.ColumnType) (arrow.DataType, bool, arrow.Metadata, error) {
	typeName, _ := sqlwrapper.BaseTypeName(colType)

	switch {
	case typeName == "JSON":
		return arrow.BinaryTypes.String, nullable(colType), metadata(colType, MetaKeyIsJSON), nil
	case typeName == "ENUM", typeName == "SET":
		return arrow.BinaryTypes.String, nullable(colType), metadata(colType, MetaKeyIsEnumSet), nil
	case isSpatial(typeName):
		// Internal WKB representation, prefixed by the SRID
		return arrow.BinaryTypes.Binary, nullable(colType), metadata(colType, MetaKeyIsSpatial), nil
	case typeName == "YEAR":
		return arrow.PrimitiveTypes.Int16, nullable(colType), metadata(colType, ""), nil
	case typeName == "BIT":
		// BIT(M) arrives as ceil(M/8) big endian bytes. go-sql-driver/mysql
		// does not report M, so only a driver telling BIT(1) apart gets a
		// boolean.
		if length, ok := colType.Length(); !ok || length > 1 {
			return arrow.BinaryTypes.Binary, nullable(colType), metadata(colType, ""), nil
		}
	}
	return m.DefaultTypeConverter.ConvertColumnType(colType)
}

// NativeType implements sqlwrapper.TypeConverter.
func (m TypeConverter) NativeType(colType *sql.ColumnType) buffers.DataType {
	typeName, _ := sqlwrapper.BaseTypeName(colType)
	switch {
	case isSpatial(typeName):
		return buffers.DataType{Code: buffers.SQLLongVarbinary}
	case typeName == "YEAR":
		return buffers.DataType{Code: buffers.SQLSmallInt}
	case typeName == "BIT":
		length, ok := colType.Length()
		if !ok {
			length = maxBitWidth
		}
		if length > 1 {
			return buffers.DataType{Code: buffers.SQLBinary, ColumnSize: int((length + 7) / 8)}
		}
	}
	dt := m.DefaultTypeConverter.NativeType(colType)
	if _, ok := colType.Length(); !ok {
		// Upper bounds MySQL fixes for the type, independent of its declaration
		switch typeName {
		case "TINYTEXT", "TINYBLOB":
			dt.ColumnSize = maxTinyLength
		}
	}
	return dt
}

var _ sqlwrapper.TypeConverter = TypeConverter{}
