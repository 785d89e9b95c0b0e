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
	"database/sql/driver"
	"errors"

	"github.com/apache/arrow-adbc/go/adbc"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/spiceai/arrow-odbc/driverbase"
)

// Server error numbers, see
// https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	erDBAccessDenied     = 1044
	erAccessDenied       = 1045
	erBadDB              = 1049
	erBadField           = 1054
	erDupEntry           = 1062
	erParse              = 1064
	erTableAccessDenied  = 1142
	erColumnAccessDenied = 1143
	erNoSuchTable        = 1146
	erLockWaitTimeout    = 1205
	erQueryInterrupted   = 1317
	erQueryTimeout       = 3024
)

// ErrorInspector maps errors of the MySQL driver to ADBC status codes and
// copies the SQLSTATE and error number of server errors.
type ErrorInspector struct{}

func (ErrorInspector) InspectError(err error, defaultStatus adbc.Status) driverbase.ErrorInfo {
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		info := driverbase.ErrorInfo{
			Status:     serverStatus(mysqlErr.Number),
			VendorCode: int32(mysqlErr.Number),
		}
		if mysqlErr.SQLState != [5]byte{} {
			info.SqlState = string(mysqlErr.SQLState[:])
		}
		return info
	}
	if errors.Is(err, gomysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return driverbase.ErrorInfo{Status: adbc.StatusIO}
	}
	return driverbase.ErrorInfo{}
}

// serverStatus returns zero for numbers without a better match than the
// default status.
func serverStatus(number uint16) adbc.Status {
	switch number {
	case erAccessDenied:
		return adbc.StatusUnauthenticated
	case erDBAccessDenied, erTableAccessDenied, erColumnAccessDenied:
		return adbc.StatusUnauthorized
	case erParse:
		return adbc.StatusInvalidArgument
	case erBadDB, erNoSuchTable, erBadField:
		return adbc.StatusNotFound
	case erDupEntry:
		return adbc.StatusAlreadyExists
	case erLockWaitTimeout, erQueryTimeout:
		return adbc.StatusTimeout
	case erQueryInterrupted:
		return adbc.StatusCancelled
	}
	return 0
}

var _ driverbase.ErrorInspector = ErrorInspector{}
