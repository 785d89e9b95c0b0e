// Copyright (c) 2025 ADBC Drivers Contributors.
//
// This file has been modified from its original version, which is
// under the Apache License:
//
// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package driverbase

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/spiceai/arrow-odbc/columnstrategy"
)

// ErrorInfo contains extracted information from a data source error
type ErrorInfo struct {
	Status     adbc.Status
	SqlState   string
	VendorCode int32
	Details    []adbc.ErrorDetail
}

// ErrorInspector inspects data source errors to extract metadata.
// Cursors can implement this interface to map source-specific errors to
// ADBC status codes and extract error details like SQLSTATE and vendor codes.
type ErrorInspector interface {
	InspectError(err error, defaultStatus adbc.Status) ErrorInfo
}

// ErrorHelper helps format errors for ADBC drivers.
type ErrorHelper struct {
	DriverName     string
	ErrorInspector ErrorInspector
}

func (helper *ErrorHelper) Errorf(code adbc.Status, message string, format ...any) error {
	msg := fmt.Sprintf(message, format...)
	return adbc.Error{
		Code: code,
		Msg:  fmt.Sprintf("[%s] %s", helper.DriverName, msg),
	}
}

func (helper *ErrorHelper) InvalidArgument(message string, format ...any) error {
	return helper.Errorf(adbc.StatusInvalidArgument, message, format...)
}

func (helper *ErrorHelper) InvalidState(message string, format ...any) error {
	return helper.Errorf(adbc.StatusInvalidState, message, format...)
}

// wrapError creates an adbc.Error by inspecting the underlying error.
func (helper *ErrorHelper) wrapError(err error, defaultStatus adbc.Status, format string, args ...any) error {
	if err == nil {
		return nil
	}

	var adbcErr adbc.Error
	if errors.As(err, &adbcErr) {
		return err
	}

	contextMsg := fmt.Sprintf(format, args...)

	var info ErrorInfo
	if helper.ErrorInspector != nil {
		info = helper.ErrorInspector.InspectError(err, defaultStatus)
	}

	status := info.Status
	if status == 0 {
		status = defaultStatus
	}

	msg := fmt.Sprintf("[%s] %s: %v", helper.DriverName, contextMsg, err)

	adbcError := adbc.Error{
		Code:       status,
		Msg:        msg,
		VendorCode: info.VendorCode,
		Details:    info.Details,
	}

	// Copy SQLSTATE if available (exactly 5 characters)
	if len(info.SqlState) >= 5 {
		copy(adbcError.SqlState[:], info.SqlState[0:5])
	}

	return errors.Join(adbcError, err)
}

func (helper *ErrorHelper) WrapIO(err error, format string, args ...any) error {
	return helper.wrapError(err, adbc.StatusIO, format, args...)
}

func (helper *ErrorHelper) WrapInternal(err error, format string, args ...any) error {
	return helper.wrapError(err, adbc.StatusInternal, format, args...)
}

func (helper *ErrorHelper) WrapUnknown(err error, format string, args ...any) error {
	return helper.wrapError(err, adbc.StatusUnknown, format, args...)
}

// columnInspector maps failures of the column strategies to their status and
// defers everything else to the inspector of the cursor.
type columnInspector struct {
	next ErrorInspector
}

func (c columnInspector) InspectError(err error, defaultStatus adbc.Status) ErrorInfo {
	var info ErrorInfo
	if c.next != nil {
		info = c.next.InspectError(err, defaultStatus)
	}
	if info.Status == 0 {
		if status := columnstrategy.Status(err); status != adbc.StatusUnknown {
			info.Status = status
		}
	}
	return info
}
