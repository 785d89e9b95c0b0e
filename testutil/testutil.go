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

package testutil

import (
	"io"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
)

// CheckedClose validates that a deferred Close call did not fail.
// See: https://github.com/stretchr/testify/issues/1067
func CheckedClose(t testing.TB, obj io.Closer) {
	if err := obj.Close(); err != nil {
		t.Errorf("Failed to close object of type %T: %s", obj, err)
	}
}

// ArrayFromJSON is the same as array.FromJSON, but fails the test on error.
func ArrayFromJSON(t testing.TB, mem memory.Allocator, dtype arrow.DataType, json string) arrow.Array {
	t.Helper()
	arr, _, err := array.FromJSON(mem, dtype, strings.NewReader(json))
	if err != nil {
		t.Fatalf("failed to create array from JSON: %v", err)
	}
	return arr
}

// RecordFromJSON is the same as array.RecordFromJSON, but fails the test on error.
func RecordFromJSON(t testing.TB, mem memory.Allocator, schema *arrow.Schema, json string) arrow.RecordBatch {
	t.Helper()
	record, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(json))
	if err != nil {
		t.Fatalf("failed to create record from JSON: %v", err)
	}
	return record
}

// TextBuffer returns a filled narrow text buffer holding values, where a nil
// entry is a null.
func TextBuffer(desc buffers.BufferDescription, values ...*string) *buffers.TextColumn {
	col := buffers.NewTextColumn(desc, len(values))
	for i, v := range values {
		if v == nil {
			col.SetNull(i)
			continue
		}
		col.Set(i, []byte(*v))
	}
	col.SetLen(len(values))
	return col
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
