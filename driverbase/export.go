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

package driverbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"
)

// WriterProps holds properties for writing exported Parquet files.
type WriterProps struct {
	// A target file size in bytes.
	MaxBytes           int64
	ParquetWriterProps *parquet.WriterProperties
	ArrowWriterProps   pqarrow.ArrowWriterProperties
}

type ExportOptions struct {
	// How many batches to read ahead of the writers
	ReadDepth int
	// How many parts are written in parallel
	WriterParallelism int
	WriterProps       WriterProps
	Logger            *slog.Logger
}

func NewExportOptions() ExportOptions {
	return ExportOptions{
		ReadDepth:         5,
		WriterParallelism: 2,
		WriterProps: WriterProps{
			MaxBytes:           10 * 1024 * 1024, // 10MiB
			ParquetWriterProps: parquet.NewWriterProperties(),
			ArrowWriterProps:   pqarrow.NewArrowWriterProperties(),
		},
	}
}

// ExportSink receives the bytes of a single Parquet file.
type ExportSink interface {
	io.Closer
	Sink() io.Writer
}

// ExportedPart is a Parquet file which has been written and closed.
type ExportedPart struct {
	Index int
	Rows  int64
	Bytes int64
}

// ExportTarget creates and publishes the parts of an export. Part indices are
// unique but not necessarily contiguous.
type ExportTarget interface {
	CreateSink(ctx context.Context, part int) (ExportSink, error)
	// Commit publishes a part once it is completely written.
	Commit(ctx context.Context, part ExportedPart) error
	// Discard removes a part which will never be committed.
	Discard(ctx context.Context, part ExportedPart) error
}

// ExportParquet streams data into Parquet files created by target, starting
// a new part whenever a file reaches MaxBytes. It returns the number of rows
// in committed parts. data is drained but not released.
func ExportParquet(ctx context.Context, data array.RecordReader, target ExportTarget, opts ExportOptions) (int64, error) {
	errHelper := ErrorHelper{DriverName: DriverName}
	if data == nil {
		return 0, errHelper.InvalidArgument("ExportParquet: must provide data")
	} else if target == nil {
		return 0, errHelper.InvalidArgument("ExportParquet: must provide target")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// Parts are cleaned up even after the export was cancelled.
	cleanupCtx := context.WithoutCancel(ctx)
	schema := data.Schema()
	g, cancelCtx := errgroup.WithContext(ctx)

	// Drain the reader into a channel. (The size of the Parquet files will
	// vary based on compression/encoding ratios.)
	records := make(chan arrow.RecordBatch, max(opts.ReadDepth, 0))
	g.Go(func() error {
		defer close(records)
		for data.Next() {
			rec := data.RecordBatch()
			rec.Retain()
			select {
			case records <- rec:
			case <-cancelCtx.Done():
				rec.Release()
				return cancelCtx.Err()
			}
		}
		err := data.Err()
		logger.DebugContext(ctx, "drained source", "err", err)
		return err
	})

	// Take the records from the channel and write them to Parquet parts.
	var nextPart atomic.Int64
	written := make(chan ExportedPart, max(opts.WriterParallelism, 1))
	g.Go(func() error {
		defer close(written)
		writers, innerCtx := errgroup.WithContext(cancelCtx)
		for range max(opts.WriterParallelism, 1) {
			writers.Go(func() error {
				for {
					if err := innerCtx.Err(); err != nil {
						return err
					}

					part := ExportedPart{Index: int(nextPart.Add(1) - 1)}
					sink, err := target.CreateSink(innerCtx, part.Index)
					if err != nil {
						return err
					}

					rows, bytes, err := writeParquet(&opts.WriterProps, schema, records, sink.Sink())
					err = errors.Join(err, sink.Close())
					if err != nil || rows == 0 {
						return errors.Join(err, target.Discard(cleanupCtx, part))
					}

					part.Rows, part.Bytes = rows, bytes
					logger.DebugContext(ctx, "wrote part", "part", part.Index, "rows", rows, "bytes", bytes)
					select {
					case written <- part:
					case <-innerCtx.Done():
						return errors.Join(innerCtx.Err(), target.Discard(cleanupCtx, part))
					}
				}
			})
		}
		err := writers.Wait()
		logger.DebugContext(ctx, "wrote all parts", "err", err)
		return err
	})

	// Publish the written parts.
	var rowsWritten int64
	g.Go(func() error {
		for part := range written {
			if err := target.Commit(cancelCtx, part); err != nil {
				logger.DebugContext(ctx, "failed to commit part", "part", part.Index, "err", err)
				return errors.Join(err, target.Discard(cleanupCtx, part))
			}
			rowsWritten += part.Rows
			logger.DebugContext(ctx, "committed part", "part", part.Index, "rows", part.Rows)
		}
		return nil
	})

	err := g.Wait()
	// Whatever is still queued was produced after a failure.
	for part := range written {
		if discardErr := target.Discard(cleanupCtx, part); discardErr != nil {
			logger.WarnContext(ctx, "failed to clean up part", "part", part.Index, "err", discardErr)
			err = errors.Join(err, discardErr)
		}
	}
	for rec := range records {
		rec.Release()
	}
	logger.DebugContext(ctx, "completed export", "rows", rowsWritten, "err", err)
	if err != nil {
		return rowsWritten, errHelper.WrapIO(err, "exporting result set")
	}
	return rowsWritten, nil
}

// writeParquet pulls records from the channel and appends them to a Parquet
// file until the file reaches MaxBytes or the channel is closed.
func writeParquet(writerProps *WriterProps, schema *arrow.Schema, records <-chan arrow.RecordBatch, sink io.Writer) (int64, int64, error) {
	w, err := pqarrow.NewFileWriter(schema, sink, writerProps.ParquetWriterProps, writerProps.ArrowWriterProps)
	if err != nil {
		return 0, 0, err
	}

	rows := int64(0)
	for record := range records {
		err = func(record arrow.RecordBatch) error {
			defer record.Release()
			if record.NumRows() == 0 {
				return nil
			}

			if err := w.Write(record); err != nil {
				return err
			}
			rows += record.NumRows()
			return nil
		}(record)

		if err != nil {
			return 0, 0, errors.Join(err, w.Close())
		} else if w.RowGroupTotalBytesWritten() >= writerProps.MaxBytes {
			break
		}
	}

	if rows == 0 {
		return 0, 0, w.Close()
	}

	if err := w.Close(); err != nil {
		return 0, 0, err
	}

	return rows, w.RowGroupTotalCompressedBytes(), nil
}

// DirectoryTarget writes the parts of an export as Prefix-NNNNN.parquet files
// into Dir. A part keeps a .tmp suffix until it is committed.
type DirectoryTarget struct {
	Dir    string
	Prefix string
}

func (d DirectoryTarget) path(part int) string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "part"
	}
	return filepath.Join(d.Dir, fmt.Sprintf("%s-%05d.parquet", prefix, part))
}

type fileSink struct {
	*os.File
}

func (f fileSink) Sink() io.Writer { return f.File }

func (d DirectoryTarget) CreateSink(_ context.Context, part int) (ExportSink, error) {
	f, err := os.Create(d.path(part) + ".tmp")
	if err != nil {
		return nil, err
	}
	return fileSink{f}, nil
}

func (d DirectoryTarget) Commit(_ context.Context, part ExportedPart) error {
	final := d.path(part.Index)
	return os.Rename(final+".tmp", final)
}

func (d DirectoryTarget) Discard(_ context.Context, part ExportedPart) error {
	err := os.Remove(d.path(part.Index) + ".tmp")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

var _ ExportTarget = DirectoryTarget{}
