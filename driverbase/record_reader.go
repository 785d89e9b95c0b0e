// Copyright (c) 2025 Columnar Technologies, Inc.
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

package driverbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spiceai/arrow-odbc/buffers"
	"github.com/spiceai/arrow-odbc/columnstrategy"
	"github.com/spiceai/arrow-odbc/driverbase/arrowext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DriverName = "arrow-odbc"

	OptionKeyBatchSize   = "adbc.statement.batch_size"
	OptionKeyParallelism = "adbc.odbc.parallelism"

	DefaultBatchSize = 65536

	tracerName = "github.com/spiceai/arrow-odbc/driverbase"
)

// BlockCursor fills bound transit buffers block by block, the way an ODBC
// cursor does with row-wise binding turned off.
type BlockCursor interface {
	io.Closer
	// Fetch writes up to Capacity rows into every column and returns how
	// many rows it wrote. It returns io.EOF once the result set is
	// exhausted, possibly together with a final partial batch.
	Fetch(ctx context.Context, columns []buffers.AnyColumnBuffer) (int, error)
}

// ColumnDescriber gives access to the metadata of the result set. Columns
// are zero based.
type ColumnDescriber interface {
	DataType(col int) (buffers.DataType, error)
	DisplaySize(col int) (int, error)
}

// ReaderOptions configure a columnar record reader. The zero value is
// usable.
type ReaderOptions struct {
	// BatchSize is the maximum number of rows per record batch. Zero means
	// DefaultBatchSize.
	BatchSize  int
	Allocation columnstrategy.BufferAllocationOptions
	// Parallelism is the number of columns converted concurrently. Values
	// below two convert the columns one after another.
	Parallelism int

	Logger         *slog.Logger
	Tracer         trace.Tracer
	Metrics        *ReaderMetrics
	ErrorInspector ErrorInspector
}

// SetOption parses a single string option. Keys not handled by the reader
// are passed on to the allocation options.
func (o *ReaderOptions) SetOption(key, value string) error {
	switch key {
	case OptionKeyBatchSize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return adbc.Error{
				Msg:  fmt.Sprintf("[%s] Invalid value '%s' for option '%s'", DriverName, value, key),
				Code: adbc.StatusInvalidArgument,
			}
		}
		o.BatchSize = n
	case OptionKeyParallelism:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return adbc.Error{
				Msg:  fmt.Sprintf("[%s] Invalid value '%s' for option '%s'", DriverName, value, key),
				Code: adbc.StatusInvalidArgument,
			}
		}
		o.Parallelism = n
	default:
		return o.Allocation.SetOption(key, value)
	}
	return nil
}

// ColumnarRecordReader is an array.RecordReader which fetches batches into
// transit buffers and converts them column by column.
type ColumnarRecordReader struct {
	refCount int64
	ctx      context.Context
	alloc    memory.Allocator
	schema   *arrow.Schema
	cursor   BlockCursor

	strategies  []columnstrategy.ColumnStrategy
	columns     []buffers.AnyColumnBuffer
	bufferBytes int
	parallelism int

	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *ReaderMetrics
	errHelper ErrorHelper

	// The next record to be yielded
	record arrow.RecordBatch
	// All errors encountered
	err  error
	done bool
}

// NewRecordReader binds one transit buffer per field of schema and returns a
// reader streaming the cursor as record batches of that schema. The cursor
// is owned by the reader from then on, also if an error is returned.
func NewRecordReader(ctx context.Context, alloc memory.Allocator, schema *arrow.Schema, describer ColumnDescriber, cursor BlockCursor, opts ReaderOptions) (array.RecordReader, error) {
	errHelper := ErrorHelper{
		DriverName:     DriverName,
		ErrorInspector: columnInspector{next: opts.ErrorInspector},
	}

	if cursor == nil {
		return nil, errHelper.InvalidArgument("NewRecordReader: must provide cursor")
	}
	if ctx == nil {
		return nil, errors.Join(errHelper.InvalidArgument("NewRecordReader: must provide ctx"), cursor.Close())
	} else if alloc == nil {
		return nil, errors.Join(errHelper.InvalidArgument("NewRecordReader: must provide alloc"), cursor.Close())
	} else if schema == nil {
		return nil, errors.Join(errHelper.InvalidArgument("NewRecordReader: must provide schema"), cursor.Close())
	} else if opts.BatchSize < 0 {
		return nil, errors.Join(errHelper.InvalidArgument("NewRecordReader: batch size must be non-negative"), cursor.Close())
	}

	if schema.NumFields() == 0 {
		if err := cursor.Close(); err != nil {
			return nil, errHelper.WrapIO(err, "closing cursor")
		}
		return arrowext.NewEmptyReader(schema), nil
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	rr := &ColumnarRecordReader{
		refCount:    1,
		ctx:         ctx,
		alloc:       alloc,
		schema:      schema,
		cursor:      cursor,
		strategies:  make([]columnstrategy.ColumnStrategy, schema.NumFields()),
		columns:     make([]buffers.AnyColumnBuffer, schema.NumFields()),
		parallelism: max(opts.Parallelism, 1),
		logger:      logger,
		tracer:      tracer,
		metrics:     opts.Metrics,
		errHelper:   errHelper,
	}

	catalog := columnstrategy.Catalog{Options: opts.Allocation, Logger: logger}
	for i, field := range schema.Fields() {
		lazyDataType := columnstrategy.NewLazy(func() (buffers.DataType, error) { return describer.DataType(i) })
		lazyDisplaySize := columnstrategy.NewLazy(func() (int, error) { return describer.DisplaySize(i) })

		strategy, err := catalog.Choose(ctx, field, lazyDataType.Get, lazyDisplaySize.Get)
		if err == nil {
			rr.strategies[i] = strategy
			rr.columns[i], err = columnstrategy.AllocateColumnBuffer(strategy.BufferDescription(), batchSize, opts.Allocation)
		}
		if err != nil {
			rr.metrics.failed("bind")
			err = rr.errHelper.WrapUnknown(columnstrategy.IntoColumnError(err, field.Name, i), "binding column")
			rr.Close()
			return nil, errors.Join(err, rr.err)
		}
		bytes := batchSize * strategy.BufferDescription().ElementSize()
		rr.bufferBytes += bytes
		rr.metrics.buffersAllocated(bytes)
	}
	logger.DebugContext(ctx, "bound transit buffers",
		"columns", len(rr.columns),
		"batch_size", batchSize,
		"bytes", rr.bufferBytes)
	return rr, nil
}

func (rr *ColumnarRecordReader) Close() {
	if rr.record != nil {
		rr.record.Release()
		rr.record = nil
	}
	if rr.columns != nil {
		rr.metrics.buffersReleased(rr.bufferBytes)
		rr.columns = nil
	}
	if rr.cursor != nil {
		if err := rr.cursor.Close(); err != nil {
			rr.err = errors.Join(rr.err, rr.errHelper.WrapIO(err, "closing cursor"))
		}
		rr.cursor = nil
	}
}

func (rr *ColumnarRecordReader) Next() bool {
	if rr.cursor == nil || rr.err != nil {
		return false
	}
	if rr.record != nil {
		rr.record.Release()
		rr.record = nil
	}
	if rr.done {
		// Close eagerly, even if Release() isn't called until later.
		rr.Close()
		return false
	}

	ctx, span := rr.tracer.Start(rr.ctx, "odbc.fetch_batch",
		trace.WithAttributes(attribute.Int("odbc.columns", len(rr.columns))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		rr.fail(span, "fetch", rr.errHelper.WrapUnknown(err, "fetching batch"))
		return false
	}

	rows, err := rr.cursor.Fetch(ctx, rr.columns)
	if errors.Is(err, io.EOF) {
		rr.done = true
	} else if err != nil {
		rr.fail(span, "fetch", rr.errHelper.WrapIO(err, "fetching batch"))
		return false
	}
	span.SetAttributes(attribute.Int("odbc.rows", rows))
	if rows == 0 {
		rr.Close()
		return false
	}

	start := time.Now()
	record, err := rr.fill(ctx, rows)
	if err != nil {
		rr.fail(span, "fill", err)
		return false
	}
	fill := time.Since(start)

	rr.record = record
	rr.metrics.batchFetched(rows, fill)
	rr.logger.DebugContext(ctx, "fetched batch", "rows", rows, "fill", fill)
	return true
}

// fill converts the first rows of every transit buffer into a record batch.
func (rr *ColumnarRecordReader) fill(ctx context.Context, rows int) (arrow.RecordBatch, error) {
	for _, col := range rr.columns {
		col.SetLen(rows)
	}

	arrays := make([]arrow.Array, len(rr.columns))
	defer func() {
		for _, arr := range arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rr.parallelism)
	for i := range rr.columns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			arr, err := rr.strategies[i].FillArrowArray(rr.alloc, rr.columns[i])
			if err != nil {
				return columnstrategy.IntoColumnError(err, rr.schema.Field(i).Name, i)
			}
			arrays[i] = arr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, rr.errHelper.WrapUnknown(err, "converting batch")
	}
	return array.NewRecord(rr.schema, arrays, int64(rows)), nil
}

func (rr *ColumnarRecordReader) fail(span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	rr.metrics.failed(stage)
	rr.err = err
	rr.logger.DebugContext(rr.ctx, "batch failed", "stage", stage, "error", err)
	rr.Close()
}

func (rr *ColumnarRecordReader) Release() {
	if atomic.AddInt64(&rr.refCount, -1) == 0 {
		rr.Close()
	}
}

func (rr *ColumnarRecordReader) Retain() {
	atomic.AddInt64(&rr.refCount, 1)
}

func (rr *ColumnarRecordReader) Schema() *arrow.Schema {
	return rr.schema
}

func (rr *ColumnarRecordReader) Record() arrow.RecordBatch {
	return rr.record
}

func (rr *ColumnarRecordReader) RecordBatch() arrow.RecordBatch {
	return rr.record
}

func (rr *ColumnarRecordReader) Err() error {
	return rr.err
}

var _ array.RecordReader = (*ColumnarRecordReader)(nil)
