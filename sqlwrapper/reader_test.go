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

package sqlwrapper_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/columnstrategy"
	"github.com/spiceai/arrow-odbc/driverbase"
	"github.com/spiceai/arrow-odbc/driverbase/arrowext"
	"github.com/spiceai/arrow-odbc/sqlwrapper"
	"github.com/spiceai/arrow-odbc/testutil"
	"github.com/stretchr/testify/suite"
)

func TestReader(t *testing.T) {
	suite.Run(t, &ReaderSuite{})
}

type ReaderSuite struct {
	suite.Suite
	ctx  context.Context
	mem  *memory.CheckedAllocator
	db   *sql.DB
	conn *sqlwrapper.LoggingConn
}

func (s *ReaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = memory.NewCheckedAllocator(memory.NewGoAllocator())

	db, err := sql.Open(testutil.FakeDriverName, "")
	s.Require().NoError(err)
	s.db = db
	conn, err := db.Conn(s.ctx)
	s.Require().NoError(err)
	s.conn = &sqlwrapper.LoggingConn{Conn: conn, Logger: slog.New(slog.DiscardHandler)}
}

func (s *ReaderSuite) TearDownTest() {
	s.NoError(s.conn.Close())
	s.NoError(s.db.Close())
	s.mem.AssertSize(s.T(), 0)
}

func (s *ReaderSuite) options() sqlwrapper.ReaderOptions {
	var opts sqlwrapper.ReaderOptions
	opts.Allocation.TextEncoding = columnstrategy.TextEncodingNarrow
	return opts
}

func (s *ReaderSuite) query(query string, opts sqlwrapper.ReaderOptions) array.RecordReader {
	rdr, err := sqlwrapper.Query(s.ctx, s.mem, s.conn, query, opts)
	s.Require().NoError(err)
	return rdr
}

func (s *ReaderSuite) readAll(rdr array.RecordReader) []arrow.RecordBatch {
	batches, err := arrowext.ReadAll(rdr)
	s.Require().NoError(err)
	return batches
}

func releaseAll(batches []arrow.RecordBatch) {
	for _, b := range batches {
		b.Release()
	}
}

// assertColumns compares the data of two batches, ignoring field metadata.
func (s *ReaderSuite) assertColumns(expected, actual arrow.RecordBatch) {
	s.Require().Equal(expected.NumCols(), actual.NumCols())
	for i := range int(expected.NumCols()) {
		s.Truef(array.Equal(expected.Column(i), actual.Column(i)), "column %d\nExpected: %s\nActual: %s", i, expected.Column(i), actual.Column(i))
	}
}

func (s *ReaderSuite) TestSchemaAndBatches() {
	testutil.RegisterResult("select orders", testutil.FakeResult{
		Columns: []testutil.FakeColumn{
			testutil.Column("id", "INT").WithNullable(false),
			testutil.Column("customer", "VARCHAR").WithNullable(true).WithLength(16),
			testutil.Column("total", "DECIMAL").WithNullable(true).WithDecimalSize(10, 2),
			testutil.Column("paid", "BOOLEAN").WithNullable(true),
		},
		Rows: [][]driver.Value{
			{int64(1), "alice", []byte("12.50"), true},
			{int64(2), nil, []byte("-0.99"), false},
			{int64(3), "carol", nil, nil},
			{int64(4), "dave", []byte("100.00"), int64(1)},
			{int64(5), []byte("eve"), []byte("7"), []byte("0")},
		},
	})

	opts := s.options()
	opts.BatchSize = 2
	rdr := s.query("select orders", opts)
	defer rdr.Release()

	expectedSchema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int32},
		{Name: "customer", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "total", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}, Nullable: true},
		{Name: "paid", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)
	s.Require().Len(rdr.Schema().Fields(), 4)
	for i, field := range rdr.Schema().Fields() {
		expected := expectedSchema.Field(i)
		s.Equal(expected.Name, field.Name)
		s.Truef(arrow.TypeEqual(expected.Type, field.Type), "field %d: %s != %s", i, expected.Type, field.Type)
		s.Equal(expected.Nullable, field.Nullable, "field %d", i)
	}

	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 3)
	s.Equal([]int64{2, 2, 1}, []int64{batches[0].NumRows(), batches[1].NumRows(), batches[2].NumRows()})

	expected := testutil.RecordFromJSON(s.T(), s.mem, expectedSchema, `[
		{"id": 1, "customer": "alice", "total": "12.50", "paid": true},
		{"id": 2, "customer": null, "total": "-0.99", "paid": false}
	]`)
	defer expected.Release()
	// The digits are taken as they come, "7" is 0.07 at scale 2
	last := testutil.RecordFromJSON(s.T(), s.mem, expectedSchema, `[
		{"id": 5, "customer": "eve", "total": "0.07", "paid": false}
	]`)
	defer last.Release()

	s.assertColumns(expected, batches[0])
	s.assertColumns(last, batches[2])
	s.True(batches[1].Column(2).IsNull(0))
	s.True(batches[1].Column(3).IsNull(0))
}

func (s *ReaderSuite) TestTemporalAndBinaryColumns() {
	created := time.Date(2024, time.February, 29, 13, 14, 15, 123456789, time.UTC)
	testutil.RegisterResult("select events", testutil.FakeResult{
		Columns: []testutil.FakeColumn{
			testutil.Column("created", "DATETIME").WithNullable(true).WithDecimalSize(6, 0),
			testutil.Column("day", "DATE").WithNullable(true),
			testutil.Column("payload", "VARBINARY").WithNullable(true).WithLength(4),
			testutil.Column("tag", "BINARY").WithNullable(true).WithLength(2),
			testutil.Column("small", "TINYINT UNSIGNED").WithNullable(true),
			testutil.Column("big", "INT UNSIGNED").WithNullable(true),
		},
		Rows: [][]driver.Value{
			{created, created, []byte{0xde, 0xad}, []byte{0x01, 0x02}, int64(255), int64(4294967295)},
			{"1969-12-31 23:59:59", []byte("1969-12-31"), nil, nil, nil, nil},
		},
	})

	rdr := s.query("select events", s.options())
	defer rdr.Release()

	schema := rdr.Schema()
	s.Truef(arrow.TypeEqual(&arrow.TimestampType{Unit: arrow.Microsecond}, schema.Field(0).Type), "%s", schema.Field(0).Type)
	s.Truef(arrow.TypeEqual(arrow.FixedWidthTypes.Date32, schema.Field(1).Type), "%s", schema.Field(1).Type)
	s.Truef(arrow.TypeEqual(arrow.BinaryTypes.Binary, schema.Field(2).Type), "%s", schema.Field(2).Type)
	s.Truef(arrow.TypeEqual(&arrow.FixedSizeBinaryType{ByteWidth: 2}, schema.Field(3).Type), "%s", schema.Field(3).Type)
	s.Truef(arrow.TypeEqual(arrow.PrimitiveTypes.Uint8, schema.Field(4).Type), "%s", schema.Field(4).Type)
	s.Truef(arrow.TypeEqual(arrow.PrimitiveTypes.Int64, schema.Field(5).Type), "%s", schema.Field(5).Type)

	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 1)
	rec := batches[0]

	ts := rec.Column(0).(*array.Timestamp)
	s.Equal(arrow.Timestamp(created.UnixMicro()), ts.Value(0))
	s.Equal(arrow.Timestamp(-1_000_000), ts.Value(1))

	days := rec.Column(1).(*array.Date32)
	s.Equal(arrow.Date32FromTime(created), days.Value(0))
	s.Equal(arrow.Date32(-1), days.Value(1))

	s.Equal([]byte{0xde, 0xad}, rec.Column(2).(*array.Binary).Value(0))
	s.True(rec.Column(2).IsNull(1))
	s.Equal([]byte{0x01, 0x02}, rec.Column(3).(*array.FixedSizeBinary).Value(0))
	s.Equal(uint8(255), rec.Column(4).(*array.Uint8).Value(0))
	s.Equal(int64(4294967295), rec.Column(5).(*array.Int64).Value(0))
}

func (s *ReaderSuite) TestWideText() {
	testutil.RegisterResult("select wide", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("name", "NVARCHAR").WithNullable(true).WithLength(8)},
		Rows:    [][]driver.Value{{"grüße 👋"}, {nil}},
	})

	opts := s.options()
	opts.Allocation.TextEncoding = columnstrategy.TextEncodingWide
	rdr := s.query("select wide", opts)
	defer rdr.Release()

	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 1)

	expected := testutil.ArrayFromJSON(s.T(), s.mem, arrow.BinaryTypes.String, `["grüße 👋", null]`)
	defer expected.Release()
	s.Truef(array.Equal(expected, batches[0].Column(0)), "Expected: %s\nActual: %s", expected, batches[0].Column(0))
}

func (s *ReaderSuite) TestUnboundedText() {
	testutil.RegisterResult("select notes", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("note", "TEXT").WithNullable(true)},
		Rows:    [][]driver.Value{{"a rather long note"}},
	})

	// Without an upper bound there is no way to size the buffer.
	_, err := sqlwrapper.Query(s.ctx, s.mem, s.conn, "select notes", s.options())
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusInvalidArgument, adbcErr.Code)
	var zeroSized *columnstrategy.ZeroSizedColumnError
	s.ErrorAs(err, &zeroSized)

	// A ceiling too small for the value fails the batch instead of cutting
	// the text.
	opts := s.options()
	s.Require().NoError(opts.SetOption(columnstrategy.OptionKeyMaxTextSize, "6"))
	rdr := s.query("select notes", opts)
	s.False(rdr.Next())
	var truncated *columnstrategy.TruncatedValueError
	s.ErrorAs(rdr.Err(), &truncated)
	s.Require().ErrorAs(rdr.Err(), &adbcErr)
	s.Equal(adbc.StatusInvalidArgument, adbcErr.Code)
	rdr.Release()

	s.Require().NoError(opts.SetOption(columnstrategy.OptionKeyMaxTextSize, "64"))
	rdr = s.query("select notes", opts)
	defer rdr.Release()
	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 1)
	s.Equal("a rather long note", batches[0].Column(0).(*array.String).Value(0))
}

func (s *ReaderSuite) TestTimeBeyondADay() {
	testutil.RegisterResult("select durations", testutil.FakeResult{
		Columns: []testutil.FakeColumn{
			testutil.Column("elapsed", "TIME").WithNullable(false),
			testutil.Column("precise", "TIME").WithNullable(false).WithDecimalSize(3, 3),
		},
		Rows: [][]driver.Value{
			{[]byte("838:59:59"), []byte("838:59:59.999")},
			{[]byte("-01:00:00"), []byte("-838:59:59.000")},
			{[]byte("12:00:00"), []byte("00:00:00.500")},
		},
	})

	rdr := s.query("select durations", s.options())
	defer rdr.Release()
	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 1)

	elapsed := testutil.ArrayFromJSON(s.T(), s.mem, arrow.BinaryTypes.String, `["838:59:59", "-01:00:00", "12:00:00"]`)
	defer elapsed.Release()
	s.Truef(array.Equal(elapsed, batches[0].Column(0)), "Actual: %s", batches[0].Column(0))
	precise := testutil.ArrayFromJSON(s.T(), s.mem, arrow.BinaryTypes.String, `["838:59:59.999", "-838:59:59.000", "00:00:00.500"]`)
	defer precise.Release()
	s.Truef(array.Equal(precise, batches[0].Column(1)), "Actual: %s", batches[0].Column(1))
}

func (s *ReaderSuite) TestUnknownTypesAsText() {
	testutil.RegisterResult("select misc", testutil.FakeResult{
		Columns: []testutil.FakeColumn{
			testutil.Column("at", "TIME").WithNullable(true),
			testutil.Column("doc", "JSON").WithLength(32),
			testutil.Column("geo", "GEOMETRY").WithLength(16),
		},
		Rows: [][]driver.Value{{[]byte("12:34:56"), []byte(`{"a": 1}`), []byte("POINT(1 2)")}},
	})

	rdr := s.query("select misc", s.options())
	defer rdr.Release()
	for _, field := range rdr.Schema().Fields() {
		s.Truef(arrow.TypeEqual(arrow.BinaryTypes.String, field.Type), "%s: %s", field.Name, field.Type)
		// nullability is unknown for two of them
		s.True(field.Nullable)
	}

	batches := s.readAll(rdr)
	defer releaseAll(batches)
	s.Require().Len(batches, 1)
	s.Equal("12:34:56", batches[0].Column(0).(*array.String).Value(0))
	s.Equal(`{"a": 1}`, batches[0].Column(1).(*array.String).Value(0))
	s.Equal("POINT(1 2)", batches[0].Column(2).(*array.String).Value(0))
}

func (s *ReaderSuite) TestNullInNonNullableColumn() {
	testutil.RegisterResult("select broken", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("id", "BIGINT").WithNullable(false)},
		Rows:    [][]driver.Value{{int64(1)}, {nil}},
	})

	rdr := s.query("select broken", s.options())
	defer rdr.Release()
	s.False(rdr.Next())
	s.ErrorContains(rdr.Err(), "null in a non-nullable column")
	var adbcErr adbc.Error
	s.Require().ErrorAs(rdr.Err(), &adbcErr)
	s.Equal(adbc.StatusIO, adbcErr.Code)
}

func (s *ReaderSuite) TestOutOfRange() {
	testutil.RegisterResult("select overflow", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("n", "SMALLINT").WithNullable(true)},
		Rows:    [][]driver.Value{{int64(1 << 20)}},
	})

	rdr := s.query("select overflow", s.options())
	defer rdr.Release()
	s.False(rdr.Next())
	s.ErrorContains(rdr.Err(), "out of range for int16")
	s.ErrorContains(rdr.Err(), "row 0, column 0 (n)")
}

func (s *ReaderSuite) TestRowsError() {
	rowsErr := errors.New("connection reset")
	testutil.RegisterResult("select flaky", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("id", "INT").WithNullable(true)},
		Rows:    [][]driver.Value{{int64(1)}},
		Err:     rowsErr,
	})

	rdr := s.query("select flaky", s.options())
	defer rdr.Release()
	s.False(rdr.Next())
	s.ErrorIs(rdr.Err(), rowsErr)
}

func (s *ReaderSuite) TestQueryError() {
	queryErr := errors.New("syntax error")
	testutil.RegisterQueryError("selec", queryErr)

	_, err := sqlwrapper.Query(s.ctx, s.mem, s.conn, "selec", s.options())
	s.ErrorIs(err, queryErr)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusIO, adbcErr.Code)
	s.Contains(adbcErr.Msg, "[arrow-odbc] failed to execute query")
}

type syntaxInspector struct{}

func (syntaxInspector) InspectError(err error, defaultStatus adbc.Status) driverbase.ErrorInfo {
	return driverbase.ErrorInfo{Status: adbc.StatusInvalidArgument, SqlState: "42000", VendorCode: 1064}
}

func (s *ReaderSuite) TestErrorInspector() {
	testutil.RegisterQueryError("selec *", errors.New("syntax error"))

	opts := s.options()
	opts.ErrorInspector = syntaxInspector{}
	_, err := sqlwrapper.Query(s.ctx, s.mem, s.conn, "selec *", opts)
	var adbcErr adbc.Error
	s.Require().ErrorAs(err, &adbcErr)
	s.Equal(adbc.StatusInvalidArgument, adbcErr.Code)
	s.Equal(int32(1064), adbcErr.VendorCode)
	s.Equal([5]byte{'4', '2', '0', '0', '0'}, adbcErr.SqlState)
}

func (s *ReaderSuite) TestDescribe() {
	testutil.RegisterResult("select described", testutil.FakeResult{
		Columns: []testutil.FakeColumn{
			testutil.Column("name", "varchar").WithLength(20),
			testutil.Column("price", "NUMERIC").WithDecimalSize(12, 4),
			testutil.Column("at", "TIMESTAMP").WithDecimalSize(3, 0),
			testutil.Column("blob", "LONGBLOB"),
		},
	})

	rows, err := s.conn.QueryContext(s.ctx, "select described")
	s.Require().NoError(err)
	cursor, err := sqlwrapper.NewRowsCursor(rows, nil)
	s.Require().NoError(err)
	defer testutil.CheckedClose(s.T(), cursor)

	dt, err := cursor.DataType(0)
	s.Require().NoError(err)
	s.Equal("Varchar { length: 20 }", dt.String())
	dt, err = cursor.DataType(1)
	s.Require().NoError(err)
	s.Equal("Numeric { precision: 12, scale: 4 }", dt.String())
	dt, err = cursor.DataType(2)
	s.Require().NoError(err)
	s.Equal("Timestamp { precision: 3 }", dt.String())
	dt, err = cursor.DataType(3)
	s.Require().NoError(err)
	s.Equal("LongVarbinary { length: 0 }", dt.String())

	size, err := cursor.DisplaySize(0)
	s.NoError(err)
	s.Equal(20, size)
	size, err = cursor.DisplaySize(3)
	s.NoError(err)
	s.Zero(size)

	_, err = cursor.DataType(4)
	s.Error(err)
	_, err = cursor.DisplaySize(-1)
	s.Error(err)
}

func (s *ReaderSuite) TestEmptyResultSet() {
	testutil.RegisterResult("select nothing", testutil.FakeResult{
		Columns: []testutil.FakeColumn{testutil.Column("id", "INT").WithNullable(true)},
	})

	rdr := s.query("select nothing", s.options())
	defer rdr.Release()
	s.False(rdr.Next())
	s.NoError(rdr.Err())
	s.Equal(1, rdr.Schema().NumFields())
}
