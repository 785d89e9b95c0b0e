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

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spiceai/arrow-odbc/driverbase"
	"github.com/spiceai/arrow-odbc/mysql"
)

// summary is printed to stderr once the export finished.
type summary struct {
	Format  string  `json:"format"`
	Out     string  `json:"out"`
	Rows    int64   `json:"rows"`
	Batches int64   `json:"batches"`
	Parts   int64   `json:"parts,omitempty"`
	Seconds float64 `json:"seconds"`
	Error   string  `json:"error,omitempty"`
}

func run(ctx context.Context, cfg *config, stdout, stderr io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	logger, err := cfg.logger(stderr)
	if err != nil {
		return err
	}
	opts, err := cfg.readerOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger

	shutdownTracing, err := setupTracing(ctx, cfg.TraceExporter, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flushing spans", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if opts.Metrics, err = driverbase.NewReaderMetrics(reg); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("stopping metrics server", "error", err)
			}
		}()
	}

	conn, err := mysql.Open(ctx, cfg.DSN, logger, cfg.connOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("closing connection", "error", err)
		}
	}()

	start := time.Now()
	rdr, err := conn.Query(ctx, memory.DefaultAllocator, cfg.Query, opts)
	if err != nil {
		return err
	}
	defer rdr.Release()

	result := summary{Format: cfg.Format, Out: cfg.Out}
	err = write(ctx, cfg, rdr, stdout, logger, &result)
	result.Seconds = time.Since(start).Seconds()
	if err != nil {
		result.Error = err.Error()
	}
	logger.Info("export finished", "rows", result.Rows, "seconds", result.Seconds)
	return errors.Join(err, json.NewEncoder(stderr).Encode(result))
}

func runSchema(ctx context.Context, cfg *config, stdout, stderr io.Writer) error {
	logger, err := cfg.logger(stderr)
	if err != nil {
		return err
	}
	opts, err := cfg.readerOptions()
	if err != nil {
		return err
	}
	conn, err := mysql.Open(ctx, cfg.DSN, logger, cfg.connOptions()...)
	if err != nil {
		return err
	}
	schema, err := conn.Schema(ctx, cfg.Query, opts)
	if err != nil {
		return errors.Join(err, conn.Close())
	}
	_, err = fmt.Fprintln(stdout, schema)
	return errors.Join(err, conn.Close())
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func write(ctx context.Context, cfg *config, rdr array.RecordReader, stdout io.Writer, logger *slog.Logger, result *summary) error {
	if cfg.Format == formatParquet {
		return writeParquetParts(ctx, cfg, rdr, logger, result)
	}

	var file *os.File
	out := stdout
	if cfg.Out != "-" {
		var err error
		if file, err = os.Create(cfg.Out); err != nil {
			return err
		}
		out = file
	}
	buf := bufio.NewWriterSize(out, 1<<20)

	var err error
	if cfg.Format == formatIPC {
		err = writeIPC(rdr, buf, ipcCodecs[cfg.Compression], result)
	} else {
		err = writeJSONLines(rdr, buf, result)
	}
	if err == nil {
		err = buf.Flush()
	}
	if file != nil {
		err = errors.Join(err, file.Close())
	}
	return err
}

// countingTarget counts the committed parts of target.
type countingTarget struct {
	driverbase.ExportTarget
	parts atomic.Int64
}

func (c *countingTarget) Commit(ctx context.Context, part driverbase.ExportedPart) error {
	if err := c.ExportTarget.Commit(ctx, part); err != nil {
		return err
	}
	c.parts.Add(1)
	return nil
}

// countingReader counts the batches read from the wrapped reader.
type countingReader struct {
	array.RecordReader
	batches atomic.Int64
}

func (c *countingReader) Next() bool {
	if !c.RecordReader.Next() {
		return false
	}
	c.batches.Add(1)
	return true
}

func writeParquetParts(ctx context.Context, cfg *config, rdr array.RecordReader, logger *slog.Logger, result *summary) error {
	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		return err
	}
	opts := driverbase.NewExportOptions()
	opts.WriterParallelism = cfg.WriterParallelism
	opts.WriterProps.MaxBytes = cfg.MaxFileBytes
	opts.WriterProps.ParquetWriterProps = parquet.NewWriterProperties(
		parquet.WithCompression(parquetCodecs[cfg.Compression]),
	)
	opts.Logger = logger

	target := &countingTarget{ExportTarget: driverbase.DirectoryTarget{Dir: cfg.Out, Prefix: "part"}}
	counted := &countingReader{RecordReader: rdr}
	rows, err := driverbase.ExportParquet(ctx, counted, target, opts)
	result.Rows = rows
	result.Batches = counted.batches.Load()
	result.Parts = target.parts.Load()
	return err
}

func writeIPC(rdr array.RecordReader, w io.Writer, codec []ipc.Option, result *summary) error {
	writer := ipc.NewWriter(w, append([]ipc.Option{ipc.WithSchema(rdr.Schema())}, codec...)...)
	for rdr.Next() {
		rec := rdr.RecordBatch()
		if err := writer.Write(rec); err != nil {
			return errors.Join(err, writer.Close())
		}
		result.Rows += rec.NumRows()
		result.Batches++
	}
	return errors.Join(rdr.Err(), writer.Close())
}

// writeJSONLines writes one JSON object per row.
func writeJSONLines(rdr array.RecordReader, w io.Writer, result *summary) error {
	for rdr.Next() {
		rec := rdr.RecordBatch()
		if err := array.RecordToJSON(rec, w); err != nil {
			return fmt.Errorf("batch %d: %w", result.Batches, err)
		}
		result.Rows += rec.NumRows()
		result.Batches++
	}
	return rdr.Err()
}
