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
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/spf13/cobra"
	"github.com/spiceai/arrow-odbc/columnstrategy"
	"github.com/spiceai/arrow-odbc/driverbase"
	"github.com/spiceai/arrow-odbc/mysql"
	"github.com/spiceai/arrow-odbc/sqlwrapper"
)

const (
	formatParquet = "parquet"
	formatIPC     = "ipc"
	formatJSON    = "jsonl"
)

var parquetCodecs = map[string]compress.Compression{
	"none":   compress.Codecs.Uncompressed,
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"brotli": compress.Codecs.Brotli,
	"zstd":   compress.Codecs.Zstd,
	"lz4":    compress.Codecs.Lz4Raw,
}

var ipcCodecs = map[string][]ipc.Option{
	"none": nil,
	"zstd": {ipc.WithZstd()},
	"lz4":  {ipc.WithLZ4()},
}

type config struct {
	DSN            string
	Query          string
	Format         string
	Out            string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	BatchSize         int
	MaxTextSize       int
	MaxBinarySize     int
	TextEncoding      string
	Fallible          bool
	Parallelism       int
	WriterParallelism int
	MaxFileBytes      int64
	Compression       string

	MetricsAddr   string
	LogLevel      string
	TraceExporter string
}

func defaultConfig() *config {
	export := driverbase.NewExportOptions()
	return &config{
		Format:            formatParquet,
		Out:               ".",
		BatchSize:         driverbase.DefaultBatchSize,
		MaxTextSize:       mysql.DefaultMaxTextSize,
		MaxBinarySize:     mysql.DefaultMaxBinarySize,
		TextEncoding:      "auto",
		Parallelism:       1,
		WriterParallelism: export.WriterParallelism,
		MaxFileBytes:      export.WriterProps.MaxBytes,
		LogLevel:          "info",
		ConnectTimeout:    10 * time.Second,
	}
}

func (c *config) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.DSN, "dsn", c.DSN, "MySQL DSN, e.g. user:pw@tcp(host:3306)/db (required)")
	flags.StringVarP(&c.Query, "query", "q", c.Query, "SQL query to run (required)")
	flags.StringVarP(&c.Format, "format", "f", c.Format, "Output format: parquet, ipc or jsonl")
	flags.StringVarP(&c.Out, "out", "o", c.Out, "Output directory for parquet, output file otherwise")
	flags.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "Timeout for connecting to the server")
	flags.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "Timeout for each read from the server, 0 for none")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("query")

	flags.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "Maximum number of rows per record batch")
	flags.IntVar(&c.MaxTextSize, "max-text-size", c.MaxTextSize, "Upper bound for text columns, 0 for the driver default")
	flags.IntVar(&c.MaxBinarySize, "max-binary-size", c.MaxBinarySize, "Upper bound in bytes for binary columns, 0 for the driver default")
	flags.StringVar(&c.TextEncoding, "text-encoding", c.TextEncoding, "Text transfer encoding: auto, utf8 or utf16")
	flags.BoolVar(&c.Fallible, "fallible-allocations", c.Fallible, "Fail instead of allocating oversized transit buffers")
	flags.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "Columns converted concurrently per batch")
	flags.IntVar(&c.WriterParallelism, "writer-parallelism", c.WriterParallelism, "Parquet files written concurrently")
	flags.StringVar(&c.Compression, "compression", c.Compression, "Compression codec, defaults to snappy for parquet and none otherwise")
	flags.Int64Var(&c.MaxFileBytes, "max-file-bytes", c.MaxFileBytes, "Approximate size of a Parquet part before the next one is started")

	flags.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address, e.g. :9090")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.TraceExporter, "trace-exporter", c.TraceExporter, "Export spans to none, stdout, otlp-grpc or otlp-http")
}

func (c *config) validate() error {
	switch c.Format {
	case formatParquet, formatIPC, formatJSON:
	default:
		return fmt.Errorf("unknown format %q, expected parquet, ipc or jsonl", c.Format)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Format == formatParquet && c.Out == "-" {
		return fmt.Errorf("parquet output needs a directory")
	}
	if c.Compression == "" {
		c.Compression = "none"
		if c.Format == formatParquet {
			c.Compression = "snappy"
		}
	}
	if _, ok := parquetCodecs[c.Compression]; !ok {
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	if _, ok := ipcCodecs[c.Compression]; c.Format == formatIPC && !ok {
		return fmt.Errorf("arrow IPC supports none, zstd or lz4 compression, got %q", c.Compression)
	}
	if c.WriterParallelism < 1 {
		return fmt.Errorf("writer parallelism must be positive, got %d", c.WriterParallelism)
	}
	return nil
}

func (c *config) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (c *config) connOptions() []mysql.Option {
	opts := []mysql.Option{mysql.WithConnectTimeout(c.ConnectTimeout)}
	if c.ReadTimeout > 0 {
		opts = append(opts, mysql.WithReadTimeout(c.ReadTimeout))
	}
	return opts
}

// readerOptions goes through SetOption so flags are validated the same way
// as driver options.
func (c *config) readerOptions() (sqlwrapper.ReaderOptions, error) {
	var opts sqlwrapper.ReaderOptions
	for key, value := range map[string]string{
		driverbase.OptionKeyBatchSize:               fmt.Sprint(c.BatchSize),
		driverbase.OptionKeyParallelism:             fmt.Sprint(c.Parallelism),
		columnstrategy.OptionKeyMaxTextSize:         fmt.Sprint(c.MaxTextSize),
		columnstrategy.OptionKeyMaxBinarySize:       fmt.Sprint(c.MaxBinarySize),
		columnstrategy.OptionKeyTextEncoding:        c.TextEncoding,
		columnstrategy.OptionKeyFallibleAllocations: fmt.Sprint(c.Fallible),
	} {
		if err := opts.SetOption(key, value); err != nil {
			return opts, err
		}
	}
	return opts, nil
}
